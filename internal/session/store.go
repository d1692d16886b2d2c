package session

import (
	"slices"

	"github.com/gosuda/prono/internal/domain"
)

// Phase is the coarse state of a session as seen by the presentation layer.
type Phase int

const (
	PhaseUnauthenticated Phase = iota
	PhaseLoadingProjects
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingProjects:
		return "loading_projects"
	case PhaseReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// Snapshot is an immutable copy of the session state.
type Snapshot struct {
	Credential string
	Phase      Phase
	Projects   []domain.Project
	Selected   *domain.Project
	Tasks      []domain.Task
	Connection domain.ConnectionState
	Events     []domain.LiveEvent
	// Failure describes the last failed background re-fetch, if any.
	Failure string
}

// Task returns the task with the given id from the snapshot.
func (s Snapshot) Task(id int64) (domain.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Store holds the authoritative session state. It is not safe for concurrent
// use; the session loop is its only caller. Each setter documents which
// component is allowed to call it.
type Store struct {
	credential     string
	projectsLoaded bool
	projects       []domain.Project
	selected       *domain.Project
	tasks          []domain.Task
	conn           domain.ConnectionState
	events         []domain.LiveEvent
	failure        string

	version uint64
}

func NewStore() *Store {
	return &Store{}
}

// Version increases on every state change.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) Credential() string { return s.credential }

func (s *Store) Connection() domain.ConnectionState { return s.conn }

// SelectedID returns the selected project's id.
func (s *Store) SelectedID() (int64, bool) {
	if s.selected == nil {
		return 0, false
	}
	return s.selected.ID, true
}

// Project looks up a project in the current list.
func (s *Store) Project(id int64) (domain.Project, bool) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Project{}, false
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Credential: s.credential,
		Phase:      s.phase(),
		Projects:   slices.Clone(s.projects),
		Tasks:      slices.Clone(s.tasks),
		Connection: s.conn,
		Events:     slices.Clone(s.events),
		Failure:    s.failure,
	}
	if s.selected != nil {
		p := *s.selected
		snap.Selected = &p
	}
	return snap
}

func (s *Store) phase() Phase {
	switch {
	case s.credential == "":
		return PhaseUnauthenticated
	case !s.projectsLoaded:
		return PhaseLoadingProjects
	default:
		return PhaseReady
	}
}

// SetCredential installs or clears the credential (login/logout). Clearing it
// drops everything derived from it. Reports whether the credential changed.
func (s *Store) SetCredential(credential string) bool {
	if credential == s.credential {
		return false
	}
	s.credential = credential
	s.projectsLoaded = false
	if credential == "" {
		s.projects = nil
		s.selected = nil
		s.tasks = nil
		s.events = nil
		s.conn = domain.Disconnected
		s.failure = ""
	}
	s.version++
	return true
}

// ReplaceProjects swaps in a re-fetched project list. When nothing is selected
// the first project becomes the selection. Reports whether the selection changed.
func (s *Store) ReplaceProjects(projects []domain.Project) bool {
	s.projects = slices.Clone(projects)
	s.projectsLoaded = true
	s.failure = ""
	s.version++

	if s.selected == nil && len(s.projects) > 0 {
		return s.Select(&s.projects[0])
	}
	return false
}

// Select changes the selected project (nil clears it). A change discards the
// event log and the tasks of the previous project. Reports whether the
// selected project identity changed.
func (s *Store) Select(p *domain.Project) bool {
	switch {
	case p == nil && s.selected == nil:
		return false
	case p != nil && s.selected != nil && p.ID == s.selected.ID:
		return false
	}

	if p == nil {
		s.selected = nil
	} else {
		cp := *p
		s.selected = &cp
	}
	s.tasks = nil
	s.events = nil
	s.version++
	return true
}

// ReplaceTasks swaps in a re-fetched task list.
func (s *Store) ReplaceTasks(tasks []domain.Task) {
	s.tasks = slices.Clone(tasks)
	s.failure = ""
	s.version++
}

// AppendEvent adds a decoded live event to the log.
func (s *Store) AppendEvent(ev domain.LiveEvent) {
	s.events = append(s.events, ev)
	s.version++
}

// ClearEvents empties the event log.
func (s *Store) ClearEvents() {
	if s.events == nil {
		return
	}
	s.events = nil
	s.version++
}

// SetConnection records a connection state transition.
func (s *Store) SetConnection(state domain.ConnectionState) {
	if s.conn == state {
		return
	}
	s.conn = state
	s.version++
}

// SetFailure records a user-visible failure of background work.
func (s *Store) SetFailure(msg string) {
	s.failure = msg
	s.version++
}
