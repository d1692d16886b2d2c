package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/prono/internal/domain"
)

const taskColumns = `id, project_id, title, description, due_date, is_completed, assigned_to_id`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	var due *time.Time
	if t.DueDate != nil {
		due = &t.DueDate.Time
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (project_id, title, description, due_date, is_completed, assigned_to_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.ProjectID, t.Title, t.Description, due, t.IsCompleted, t.AssignedToID,
	).Scan(&t.ID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("taskRepo.Create: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

// ListByProject returns incomplete tasks first, then by due date (undated
// last), then by id.
func (r *TaskRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1
		 ORDER BY is_completed, due_date NULLS LAST, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskRepo.ListByProject: scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskRepo.ListByProject: rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepo) SetCompleted(ctx context.Context, id int64, completed bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET is_completed = $1 WHERE id = $2`,
		completed, id,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.SetCompleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.SetCompleted: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t   domain.Task
		due *time.Time
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &due, &t.IsCompleted, &t.AssignedToID); err != nil {
		return nil, err
	}
	if due != nil {
		t.DueDate = &domain.Date{Time: *due}
	}
	return &t, nil
}
