package v1

import (
	"context"

	"github.com/gosuda/prono/internal/auth"
	"github.com/gosuda/prono/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store and *memory.Store satisfy this interface.
type DataStore interface {
	Users() domain.UserRepository
	Projects() domain.ProjectRepository
	Tasks() domain.TaskRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// Notifier posts system messages into a project's live room.
// *ws.Hub satisfies this interface.
type Notifier interface {
	Notify(ctx context.Context, projectID int64, text string) error
}
