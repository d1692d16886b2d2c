// Package session keeps a client's view of one Prono session in sync: it owns
// the state store, the live channel of the selected project, and the
// re-fetches that follow mutations.
//
// All state changes run on a single goroutine (Session.Run) that drains one
// queue of user actions, REST results and live-channel events, each run to
// completion. Network calls never run on that goroutine.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/prono/internal/client"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/live"
)

// Sentinel errors for the session package.
var (
	ErrClosed            = errors.New("session: closed")
	ErrNotAuthenticated  = errors.New("session: not authenticated")
	ErrNoProjectSelected = errors.New("session: no project selected")
	ErrUnknownProject    = errors.New("session: unknown project")
	ErrEmptyInput        = errors.New("session: empty input")
)

const queueSize = 256

// API is the subset of the HTTP API the session uses.
// *client.Client satisfies this interface.
type API interface {
	Login(ctx context.Context, username, password string) (client.TokenPair, error)
	ListProjects(ctx context.Context, credential string) ([]domain.Project, error)
	CreateProject(ctx context.Context, credential, name string) (domain.Project, error)
	GetProject(ctx context.Context, credential string, projectID int64) (domain.ProjectDetail, error)
	CreateTask(ctx context.Context, credential string, projectID int64, title string) (domain.Task, error)
	CompleteTask(ctx context.Context, credential string, taskID int64) (domain.Task, error)
}

// Options configure a Session.
type Options struct {
	// WSBaseURL is the live channel root, e.g. "ws://localhost:8000/ws/projects".
	WSBaseURL string
	// WriteTimeout bounds a single outbound frame write.
	WriteTimeout time.Duration
	// Observer, if set, receives a snapshot after every loop turn that
	// changed state. It runs on the loop goroutine and must not block.
	Observer func(Snapshot)
}

// Session is one client session. Create it with New, start it with Run, and
// drive it with the dispatcher methods from any goroutine.
type Session struct {
	api      API
	store    *Store
	channels *live.Manager
	observer func(Snapshot)

	queue chan func()
	done  chan struct{}

	// Loop-owned.
	runCtx    context.Context
	handle    *live.Handle
	published uint64
}

func New(api API, opts Options) *Session {
	s := &Session{
		api:      api,
		store:    NewStore(),
		observer: opts.Observer,
		queue:    make(chan func(), queueSize),
		done:     make(chan struct{}),
		runCtx:   context.Background(),
	}
	s.channels = live.NewManager(opts.WSBaseURL, (*sink)(s), opts.WriteTimeout)
	return s
}

// Run processes the session queue until ctx ends. On return the live channel
// is closed and the credential cleared. Run must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	s.runCtx = ctx
	defer close(s.done)
	defer s.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.queue:
			fn()
			s.publish()
		}
	}
}

func (s *Session) teardown() {
	s.closeChannel()
	s.store.SetCredential("")
	s.publish()
	log.Debug().Msg("session: stopped")
}

func (s *Session) publish() {
	if s.observer == nil || s.store.Version() == s.published {
		return
	}
	s.published = s.store.Version()
	s.observer(s.store.Snapshot())
}

// post enqueues fn for the loop.
func (s *Session) post(ctx context.Context, fn func()) error {
	select {
	case s.queue <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// call runs fn on the loop and waits until it has finished.
func (s *Session) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := s.call(ctx, func() { snap = s.store.Snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Loop handlers. Everything below runs on the loop goroutine.
// ---------------------------------------------------------------------------

// setCredential reacts to a credential change: the channel is re-keyed and,
// for a new credential, the project list is loaded.
func (s *Session) setCredential(credential string) {
	if !s.store.SetCredential(credential) {
		return
	}
	s.resync()
	if credential != "" {
		s.fetchProjects()
	}
}

// selectProject reacts to a selection change: the channel is re-keyed and the
// task list re-fetched for the new project.
func (s *Session) selectProject(p *domain.Project) {
	if !s.store.Select(p) {
		return
	}
	s.resync()
	s.fetchTasks()
}

// resync closes the current channel, discards its log, and opens a channel
// for the current (project, credential) pair if both are present.
func (s *Session) resync() {
	s.closeChannel()
	s.store.ClearEvents()

	projectID, ok := s.store.SelectedID()
	credential := s.store.Credential()
	if !ok || credential == "" {
		return
	}

	s.handle = s.channels.Open(s.runCtx, projectID, credential)
	s.store.SetConnection(domain.Connecting)
	log.Debug().Int64("project_id", projectID).Str("conn_id", s.handle.ID).Msg("session: opening live channel")
}

func (s *Session) closeChannel() {
	if s.handle != nil {
		s.channels.Close(s.handle)
		s.handle = nil
	}
	s.store.SetConnection(domain.Disconnected)
}

func (s *Session) applyProjects(projects []domain.Project, err error) {
	if err != nil {
		log.Warn().Err(err).Msg("session: project re-fetch failed")
		s.store.SetFailure("could not load projects: " + err.Error())
		return
	}
	if s.store.ReplaceProjects(projects) {
		s.resync()
		s.fetchTasks()
	}
}

func (s *Session) applyTasks(tasks []domain.Task, err error) {
	if err != nil {
		log.Warn().Err(err).Msg("session: task re-fetch failed")
		s.store.SetFailure("could not load tasks: " + err.Error())
		return
	}
	s.store.ReplaceTasks(tasks)
}

// fetchProjects starts a background project re-fetch.
func (s *Session) fetchProjects() {
	credential := s.store.Credential()
	if credential == "" {
		return
	}
	ctx := s.runCtx
	go func() {
		projects, err := s.api.ListProjects(ctx, credential)
		_ = s.post(ctx, func() { s.applyProjects(projects, err) })
	}()
}

// fetchTasks starts a background task re-fetch for the selected project.
func (s *Session) fetchTasks() {
	credential := s.store.Credential()
	projectID, ok := s.store.SelectedID()
	if credential == "" || !ok {
		return
	}
	ctx := s.runCtx
	go func() {
		detail, err := s.api.GetProject(ctx, credential, projectID)
		_ = s.post(ctx, func() { s.applyTasks(detail.Tasks, err) })
	}()
}

// ---------------------------------------------------------------------------
// Live channel sink. Callbacks arrive on connection goroutines and are
// forwarded to the loop; anything from a superseded handle is dropped there.
// ---------------------------------------------------------------------------

type sink Session

func (k *sink) Opened(h *live.Handle) {
	s := (*Session)(k)
	_ = s.post(context.Background(), func() {
		if h != s.handle {
			return
		}
		s.store.SetConnection(domain.Connected)
	})
}

func (k *sink) Frame(h *live.Handle, raw []byte) {
	s := (*Session)(k)
	_ = s.post(context.Background(), func() {
		if h != s.handle {
			return
		}
		ev, err := live.Decode(raw)
		if err != nil {
			log.Debug().Err(err).Str("conn_id", h.ID).Msg("session: frame dropped")
			return
		}
		s.store.AppendEvent(ev)
	})
}

func (k *sink) Closed(h *live.Handle, err error) {
	s := (*Session)(k)
	_ = s.post(context.Background(), func() {
		if h != s.handle {
			return
		}
		if err != nil {
			log.Warn().Err(err).Int64("project_id", h.ProjectID).Msg("session: live channel lost")
		}
		s.handle = nil
		s.store.SetConnection(domain.Disconnected)
	})
}
