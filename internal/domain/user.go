package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // argon2id
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// AnonymousUsername is the sender name used for unauthenticated live-channel peers.
const AnonymousUsername = "Anonymous"

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
