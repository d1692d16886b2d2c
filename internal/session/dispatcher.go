package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/prono/internal/domain"
)

// The methods in this file are the mutation dispatcher. They block the calling
// goroutine on the network, never the session loop, and may be called
// concurrently; mutations are not serialised against each other.

// Login exchanges username and password for a credential. On success the
// credential is installed and the project list is loaded in the background.
// On failure the session stays unauthenticated.
func (s *Session) Login(ctx context.Context, username, password string) error {
	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	if err := s.call(ctx, func() { s.setCredential(pair.Access) }); err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	log.Info().Str("username", username).Msg("session: logged in")
	return nil
}

// Logout clears the credential and everything derived from it.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.call(ctx, func() { s.setCredential("") }); err != nil {
		return fmt.Errorf("session.Logout: %w", err)
	}
	return nil
}

// SelectProject makes the project with the given id current.
func (s *Session) SelectProject(ctx context.Context, projectID int64) error {
	var found bool
	err := s.call(ctx, func() {
		p, ok := s.store.Project(projectID)
		if !ok {
			return
		}
		found = true
		s.selectProject(&p)
	})
	if err != nil {
		return fmt.Errorf("session.SelectProject: %w", err)
	}
	if !found {
		return fmt.Errorf("session.SelectProject: %w: %d", ErrUnknownProject, projectID)
	}
	return nil
}

// CreateProject creates a project and re-fetches the project list.
func (s *Session) CreateProject(ctx context.Context, name string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, fmt.Errorf("session.CreateProject: %w", ErrEmptyInput)
	}
	credential, err := s.credential(ctx)
	if err != nil {
		return domain.Project{}, fmt.Errorf("session.CreateProject: %w", err)
	}

	p, err := s.api.CreateProject(ctx, credential, name)
	if err != nil {
		return domain.Project{}, fmt.Errorf("session.CreateProject: %w", err)
	}

	s.refetchProjects(ctx, credential)
	return p, nil
}

// CreateTask adds a task to the selected project and re-fetches its tasks.
func (s *Session) CreateTask(ctx context.Context, title string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, fmt.Errorf("session.CreateTask: %w", ErrEmptyInput)
	}
	credential, projectID, err := s.projectContext(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("session.CreateTask: %w", err)
	}

	t, err := s.api.CreateTask(ctx, credential, projectID, title)
	if err != nil {
		return domain.Task{}, fmt.Errorf("session.CreateTask: %w", err)
	}

	s.refetchTasks(ctx, credential, projectID)
	return t, nil
}

// CompleteTask marks a task of the selected project completed and re-fetches
// the task list.
func (s *Session) CompleteTask(ctx context.Context, taskID int64) error {
	credential, projectID, err := s.projectContext(ctx)
	if err != nil {
		return fmt.Errorf("session.CompleteTask: %w", err)
	}

	if _, err := s.api.CompleteTask(ctx, credential, taskID); err != nil {
		return fmt.Errorf("session.CompleteTask: %w", err)
	}

	s.refetchTasks(ctx, credential, projectID)
	return nil
}

// SendChat writes a chat message on the live channel. It does nothing unless
// the channel is connected; nothing is queued for later.
func (s *Session) SendChat(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	err := s.call(ctx, func() {
		if s.handle == nil || s.store.Connection() != domain.Connected {
			return
		}
		if !s.handle.Send(text) {
			log.Debug().Str("conn_id", s.handle.ID).Msg("session: chat send dropped")
		}
	})
	if err != nil {
		return fmt.Errorf("session.SendChat: %w", err)
	}
	return nil
}

// Refresh re-fetches the project list and the tasks of the selected project.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.call(ctx, func() {
		s.fetchProjects()
		s.fetchTasks()
	}); err != nil {
		return fmt.Errorf("session.Refresh: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Session) credential(ctx context.Context) (string, error) {
	var credential string
	if err := s.call(ctx, func() { credential = s.store.Credential() }); err != nil {
		return "", err
	}
	if credential == "" {
		return "", ErrNotAuthenticated
	}
	return credential, nil
}

func (s *Session) projectContext(ctx context.Context) (string, int64, error) {
	var (
		credential string
		projectID  int64
		selected   bool
	)
	err := s.call(ctx, func() {
		credential = s.store.Credential()
		projectID, selected = s.store.SelectedID()
	})
	switch {
	case err != nil:
		return "", 0, err
	case credential == "":
		return "", 0, ErrNotAuthenticated
	case !selected:
		return "", 0, ErrNoProjectSelected
	}
	return credential, projectID, nil
}

// refetchProjects reloads the project list after a successful mutation. A
// failed reload is recorded on the snapshot; the mutation itself succeeded.
func (s *Session) refetchProjects(ctx context.Context, credential string) {
	projects, err := s.api.ListProjects(ctx, credential)
	_ = s.call(ctx, func() { s.applyProjects(projects, err) })
}

// refetchTasks reloads the tasks of the project the mutation targeted. The
// result lands on whatever project is current by then.
func (s *Session) refetchTasks(ctx context.Context, credential string, projectID int64) {
	detail, err := s.api.GetProject(ctx, credential, projectID)
	_ = s.call(ctx, func() { s.applyTasks(detail.Tasks, err) })
}
