package v1_test

import (
	"context"
	"sync"

	"github.com/gosuda/prono/internal/auth"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated user into context for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID int64) context.Context {
	return middleware.WithUser(context.Background(), userID, "alice")
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users    domain.UserRepository
	projects domain.ProjectRepository
	tasks    domain.TaskRepository
}

func (m *mockDataStore) Users() domain.UserRepository       { return m.users }
func (m *mockDataStore) Projects() domain.ProjectRepository { return m.projects }
func (m *mockDataStore) Tasks() domain.TaskRepository       { return m.tasks }

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepo struct {
	createFunc  func(ctx context.Context, p *domain.Project) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Project, error)
	listFunc    func(ctx context.Context) ([]*domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return m.createFunc(ctx, p)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return m.listFunc(ctx)
}

// ---------------------------------------------------------------------------
// Mock TaskRepository
// ---------------------------------------------------------------------------

type mockTaskRepo struct {
	createFunc        func(ctx context.Context, t *domain.Task) error
	getByIDFunc       func(ctx context.Context, id int64) (*domain.Task, error)
	listByProjectFunc func(ctx context.Context, projectID int64) ([]*domain.Task, error)
	setCompletedFunc  func(ctx context.Context, id int64, completed bool) error
}

func (m *mockTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return m.createFunc(ctx, t)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTaskRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Task, error) {
	return m.listByProjectFunc(ctx, projectID)
}

func (m *mockTaskRepo) SetCompleted(ctx context.Context, id int64, completed bool) error {
	return m.setCompletedFunc(ctx, id, completed)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc   func(ctx context.Context, username, password string) (auth.TokenPair, error)
	refreshFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (auth.TokenPair, error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Recording Notifier
// ---------------------------------------------------------------------------

type notice struct {
	projectID int64
	text      string
}

type recordingNotifier struct {
	mu      sync.Mutex
	err     error
	notices []notice
}

func (n *recordingNotifier) Notify(_ context.Context, projectID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{projectID: projectID, text: text})
	return n.err
}

func (n *recordingNotifier) sent() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}
