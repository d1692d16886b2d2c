package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/session"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	listWidth     = 28
)

func (m Model) View() string {
	if m.snap.Phase == session.PhaseUnauthenticated {
		return m.viewLogin()
	}
	return m.viewMain()
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render("prono · sign in"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.styles.muted.Render("tab switch field · enter submit · esc quit"))
	return b.String()
}

func (m Model) viewMain() string {
	width, height := m.size()
	bodyHeight := max(height-6, 5)

	projects := m.panel("Projects", m.projectLines(), listWidth, bodyHeight, m.focus == focusProjects)
	tasks := m.panel("Tasks", m.taskLines(), listWidth+6, bodyHeight, m.focus == focusTasks)
	eventsWidth := max(width-lipgloss.Width(projects)-lipgloss.Width(tasks)-4, 20)
	events := m.panel("Live", m.eventLines(bodyHeight-2), eventsWidth, bodyHeight, false)

	body := lipgloss.JoinHorizontal(lipgloss.Top, projects, tasks, events)

	inputStyle := m.styles.panel
	if m.focus == focusInput {
		inputStyle = m.styles.panelFocused
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerLine(),
		body,
		inputStyle.Width(max(width-4, 20)).Render(m.input.View()),
		m.statusLine(),
		m.styles.muted.Render("tab focus · j/k move · enter select/complete · r refresh · i type · q quit"),
	)
}

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}
	return w, h
}

func (m Model) headerLine() string {
	project := "no project"
	if m.snap.Selected != nil {
		project = m.snap.Selected.Name
	}
	return m.styles.header.Render(fmt.Sprintf("prono · %s · %s · %s",
		m.snap.Phase, project, m.snap.Connection))
}

func (m Model) statusLine() string {
	switch {
	case m.status != "" && m.statusErr:
		return m.styles.errStatus.Render(m.status)
	case m.status != "":
		return m.styles.status.Render(m.status)
	case m.snap.Failure != "":
		return m.styles.errStatus.Render(m.snap.Failure)
	}
	return ""
}

func (m Model) panel(title string, lines []string, width, height int, focused bool) string {
	style := m.styles.panel
	if focused {
		style = m.styles.panelFocused
	}
	content := m.styles.panelTitle.Render(title) + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Height(height).Render(content)
}

func (m Model) projectLines() []string {
	if m.snap.Phase == session.PhaseLoadingProjects {
		return []string{m.styles.muted.Render("loading…")}
	}
	if len(m.snap.Projects) == 0 {
		return []string{m.styles.muted.Render("no projects yet, try /project NAME")}
	}

	lines := make([]string, 0, len(m.snap.Projects))
	for i, p := range m.snap.Projects {
		line := cursorMark(m.focus == focusProjects && i == m.projectCursor) + p.Name
		switch {
		case m.focus == focusProjects && i == m.projectCursor:
			line = m.styles.cursor.Render(line)
		case m.snap.Selected != nil && m.snap.Selected.ID == p.ID:
			line = m.styles.selected.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

func (m Model) taskLines() []string {
	if m.snap.Selected == nil {
		return nil
	}
	if len(m.snap.Tasks) == 0 {
		return []string{m.styles.muted.Render("no tasks, try /task TITLE")}
	}

	lines := make([]string, 0, len(m.snap.Tasks))
	for i, t := range m.snap.Tasks {
		line := cursorMark(m.focus == focusTasks && i == m.taskCursor) + checkbox(t) + " " + t.Title
		switch {
		case m.focus == focusTasks && i == m.taskCursor:
			line = m.styles.cursor.Render(line)
		case t.IsCompleted:
			line = m.styles.done.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// eventLines renders the newest events that fit in limit lines.
func (m Model) eventLines(limit int) []string {
	events := m.snap.Events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, m.renderEvent(ev))
	}
	return lines
}

func (m Model) renderEvent(ev domain.LiveEvent) string {
	switch {
	case ev.Kind == domain.EventConnectionEstablished:
		return m.styles.muted.Render(ev.Text)
	case ev.IsSystem():
		return m.styles.system.Render(ev.Text)
	}
	sender := ev.Sender
	if sender == "" {
		sender = "?"
	}
	return m.styles.sender.Render(sender+":") + " " + ev.Text
}

func cursorMark(on bool) string {
	if on {
		return "> "
	}
	return "  "
}

func checkbox(t domain.Task) string {
	if t.IsCompleted {
		return "[x]"
	}
	return "[ ]"
}
