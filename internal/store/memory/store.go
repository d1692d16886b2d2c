// Package memory implements the repositories and the room broker in process
// memory. It backs the reference server when no database or Redis is
// configured, and the end-to-end tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gosuda/prono/internal/domain"
)

// Store holds all repositories behind one lock.
type Store struct {
	mu sync.RWMutex

	users    map[int64]*domain.User
	projects map[int64]*domain.Project
	tasks    map[int64]*domain.Task
	lastID   int64
}

func New() *Store {
	return &Store{
		users:    make(map[int64]*domain.User),
		projects: make(map[int64]*domain.Project),
		tasks:    make(map[int64]*domain.Task),
	}
}

func (s *Store) Users() domain.UserRepository       { return (*UserRepo)(s) }
func (s *Store) Projects() domain.ProjectRepository { return (*ProjectRepo)(s) }
func (s *Store) Tasks() domain.TaskRepository       { return (*TaskRepo)(s) }

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// --- Users ---

type UserRepo Store

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
		}
	}
	u.ID = s.nextID()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("userRepo.GetByUsername: %w", domain.ErrNotFound)
}

// --- Projects ---

type ProjectRepo Store

func (r *ProjectRepo) Create(_ context.Context, p *domain.Project) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.OwnerID]; !ok {
		return fmt.Errorf("projectRepo.Create: owner: %w", domain.ErrNotFound)
	}
	p.ID = s.nextID()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (r *ProjectRepo) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *ProjectRepo) List(context.Context) ([]*domain.Project, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.Project) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// --- Tasks ---

type TaskRepo Store

func (r *TaskRepo) Create(_ context.Context, t *domain.Task) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[t.ProjectID]; !ok {
		return fmt.Errorf("taskRepo.Create: project: %w", domain.ErrNotFound)
	}
	t.ID = s.nextID()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (r *TaskRepo) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *TaskRepo) ListByProject(_ context.Context, projectID int64) ([]*domain.Task, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			cp := *t
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, compareTasks)
	return out, nil
}

func (r *TaskRepo) SetCompleted(_ context.Context, id int64, completed bool) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("taskRepo.SetCompleted: %w", domain.ErrNotFound)
	}
	t.IsCompleted = completed
	return nil
}

// compareTasks orders incomplete tasks first, then by due date (undated
// last), then by id.
func compareTasks(a, b *domain.Task) int {
	if a.IsCompleted != b.IsCompleted {
		if a.IsCompleted {
			return 1
		}
		return -1
	}
	switch {
	case a.DueDate == nil && b.DueDate != nil:
		return 1
	case a.DueDate != nil && b.DueDate == nil:
		return -1
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(b.DueDate.Time); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}
