package domain

import (
	"context"
	"errors"
	"time"
)

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// ProjectDetail is a project together with its tasks, as returned by the
// project read endpoints. A missing tasks field decodes as no tasks.
type ProjectDetail struct {
	Project
	Tasks []Task `json:"tasks"`
}

// NewProject creates a Project with validated required fields.
func NewProject(ownerID int64, name, description string) (*Project, error) {
	if ownerID <= 0 {
		return nil, errors.New("project: owner ID is required")
	}
	if name == "" {
		return nil, errors.New("project: name is required")
	}
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}, nil
}

// ProjectRepository persists projects. Create assigns the ID.
// List returns projects ordered by name.
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
}
