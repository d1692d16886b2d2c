// Package tui renders a session in the terminal with bubbletea. The model
// only reads snapshots; every change goes through the session's actions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/session"
)

// Actions is the mutation surface the UI drives. *session.Session
// satisfies it.
type Actions interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	SelectProject(ctx context.Context, projectID int64) error
	CreateProject(ctx context.Context, name string) (domain.Project, error)
	CreateTask(ctx context.Context, title string) (domain.Task, error)
	CompleteTask(ctx context.Context, taskID int64) error
	SendChat(ctx context.Context, text string) error
	Refresh(ctx context.Context) error
}

type Options struct {
	Username string
	Password string
	NoColor  bool
}

type focus int

const (
	focusProjects focus = iota
	focusTasks
	focusInput
)

type loginField int

const (
	fieldUsername loginField = iota
	fieldPassword
)

// resultMsg reports the outcome of an action.
type resultMsg struct {
	note string
	err  error
}

type Model struct {
	ctx     context.Context
	actions Actions
	feed    *Feed
	styles  styles

	snap session.Snapshot

	username   textinput.Model
	password   textinput.Model
	loginField loginField
	autoLogin  bool

	input         textinput.Model
	focus         focus
	projectCursor int
	taskCursor    int

	status    string
	statusErr bool
	busy      bool

	width  int
	height int
}

func New(ctx context.Context, actions Actions, feed *Feed, opts Options) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.SetValue(opts.Username)
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.SetValue(opts.Password)

	input := textinput.New()
	input.Placeholder = "message, or /project NAME, /task TITLE, /refresh, /logout"
	input.CharLimit = 2000

	return Model{
		ctx:       ctx,
		actions:   actions,
		feed:      feed,
		styles:    newStyles(opts.NoColor),
		username:  username,
		password:  password,
		autoLogin: opts.Username != "" && opts.Password != "",
		input:     input,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.feed.next()}
	if m.autoLogin {
		cmds = append(cmds, m.login())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case snapshotMsg:
		m.applySnapshot(session.Snapshot(msg))
		return m, m.feed.next()

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.status, m.statusErr = describe(msg.err), true
		} else {
			m.status, m.statusErr = msg.note, false
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.snap.Phase == session.PhaseUnauthenticated {
			return m.updateLogin(msg)
		}
		return m.updateMain(msg)
	}

	return m, nil
}

func (m *Model) applySnapshot(snap session.Snapshot) {
	wasAuthed := m.snap.Phase != session.PhaseUnauthenticated
	m.snap = snap

	if snap.Phase == session.PhaseUnauthenticated && wasAuthed {
		m.password.SetValue("")
		m.loginField = fieldPassword
		m.username.Blur()
		m.password.Focus()
	}

	m.projectCursor = clamp(m.projectCursor, len(snap.Projects))
	m.taskCursor = clamp(m.taskCursor, len(snap.Tasks))
}

// ---------------------------------------------------------------------------
// Login form
// ---------------------------------------------------------------------------

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.toggleLoginField()
		return m, nil
	case "enter":
		if m.loginField == fieldUsername {
			m.toggleLoginField()
			return m, nil
		}
		if m.busy {
			return m, nil
		}
		if strings.TrimSpace(m.username.Value()) == "" || m.password.Value() == "" {
			m.status, m.statusErr = "username and password are required", true
			return m, nil
		}
		cmd := m.login()
		return m, cmd
	case "esc":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.loginField == fieldUsername {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleLoginField() {
	if m.loginField == fieldUsername {
		m.loginField = fieldPassword
		m.username.Blur()
		m.password.Focus()
		return
	}
	m.loginField = fieldUsername
	m.password.Blur()
	m.username.Focus()
}

func (m *Model) login() tea.Cmd {
	m.busy = true
	m.status, m.statusErr = "logging in…", false
	actions := m.actions
	username, password := strings.TrimSpace(m.username.Value()), m.password.Value()
	return m.act(func(ctx context.Context) (string, error) {
		if err := actions.Login(ctx, username, password); err != nil {
			return "", err
		}
		return "logged in as " + username, nil
	})
}

// ---------------------------------------------------------------------------
// Main view
// ---------------------------------------------------------------------------

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "tab" {
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	}

	if m.focus == focusInput {
		switch msg.String() {
		case "esc":
			m.setFocus(focusProjects)
			return m, nil
		case "enter":
			text := m.input.Value()
			m.input.SetValue("")
			return m, m.submit(text)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "i", "/":
		m.setFocus(focusInput)
		if msg.String() == "/" {
			m.input.SetValue("/")
			m.input.CursorEnd()
		}
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "r":
		return m, m.act(func(ctx context.Context) (string, error) {
			return "refreshed", m.actions.Refresh(ctx)
		})
	case "enter":
		return m, m.activate()
	}
	return m, nil
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case focusProjects:
		m.projectCursor = clamp(m.projectCursor+delta, len(m.snap.Projects))
	case focusTasks:
		m.taskCursor = clamp(m.taskCursor+delta, len(m.snap.Tasks))
	}
}

// activate selects the project or completes the task under the cursor.
func (m Model) activate() tea.Cmd {
	switch m.focus {
	case focusProjects:
		if len(m.snap.Projects) == 0 {
			return nil
		}
		p := m.snap.Projects[m.projectCursor]
		if m.snap.Selected != nil && m.snap.Selected.ID == p.ID {
			return nil
		}
		return m.act(func(ctx context.Context) (string, error) {
			return "switched to " + p.Name, m.actions.SelectProject(ctx, p.ID)
		})
	case focusTasks:
		if len(m.snap.Tasks) == 0 {
			return nil
		}
		t := m.snap.Tasks[m.taskCursor]
		if t.IsCompleted {
			return nil
		}
		return m.act(func(ctx context.Context) (string, error) {
			return fmt.Sprintf("completed %q", t.Title), m.actions.CompleteTask(ctx, t.ID)
		})
	}
	return nil
}

// submit handles one line from the input box: a slash command or a chat
// message.
func (m Model) submit(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return m.act(func(ctx context.Context) (string, error) {
			return "", m.actions.SendChat(ctx, line)
		})
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "project":
		return m.act(func(ctx context.Context) (string, error) {
			p, err := m.actions.CreateProject(ctx, arg)
			return fmt.Sprintf("created project %q", p.Name), err
		})
	case "task":
		return m.act(func(ctx context.Context) (string, error) {
			t, err := m.actions.CreateTask(ctx, arg)
			return fmt.Sprintf("created task %q", t.Title), err
		})
	case "refresh":
		return m.act(func(ctx context.Context) (string, error) {
			return "refreshed", m.actions.Refresh(ctx)
		})
	case "logout":
		return m.act(func(ctx context.Context) (string, error) {
			return "logged out", m.actions.Logout(ctx)
		})
	case "quit":
		return tea.Quit
	}
	return func() tea.Msg {
		return resultMsg{err: fmt.Errorf("unknown command /%s", name)}
	}
}

func (m Model) act(fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		note, err := fn(ctx)
		return resultMsg{note: note, err: err}
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		return "nothing to send: the name or title is empty"
	case errors.Is(err, session.ErrNoProjectSelected):
		return "select a project first"
	case errors.Is(err, session.ErrClosed):
		return "session closed"
	}
	return err.Error()
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
