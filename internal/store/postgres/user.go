package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/prono/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByID",
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetByUsername matches case-insensitively, like the unique index.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "userRepo.GetByUsername",
		`SELECT id, username, password_hash, created_at FROM users WHERE lower(username) = lower($1)`, username)
}

func (r *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var u domain.User

	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}
