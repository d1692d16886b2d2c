package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Task struct {
	ID           int64  `json:"id"`
	ProjectID    int64  `json:"project_id,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	DueDate      *Date  `json:"due_date,omitempty"`
	IsCompleted  bool   `json:"is_completed"`
	AssignedToID *int64 `json:"assigned_to_id"`
}

// NewTask creates an incomplete Task with validated required fields.
func NewTask(projectID int64, title string) (*Task, error) {
	if projectID <= 0 {
		return nil, errors.New("task: project ID is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("task: title is required")
	}
	return &Task{
		ProjectID: projectID,
		Title:     title,
	}, nil
}

// Date is a calendar date encoded as "2006-01-02" on the wire.
type Date struct {
	time.Time
}

const dateLayout = time.DateOnly

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	// Accept full timestamps too; only the date part is kept.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	d.Time = t
	return nil
}

// TaskRepository persists tasks. Create assigns the ID.
// ListByProject returns incomplete tasks first, then by due date.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	ListByProject(ctx context.Context, projectID int64) ([]*Task, error)
	SetCompleted(ctx context.Context, id int64, completed bool) error
}
