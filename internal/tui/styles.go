package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	header       lipgloss.Style
	panel        lipgloss.Style
	panelFocused lipgloss.Style
	panelTitle   lipgloss.Style
	cursor       lipgloss.Style
	selected     lipgloss.Style
	done         lipgloss.Style
	sender       lipgloss.Style
	system       lipgloss.Style
	muted        lipgloss.Style
	status       lipgloss.Style
	errStatus    lipgloss.Style
}

func newStyles(noColor bool) styles {
	base := lipgloss.NewStyle()
	panel := base.
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)

	st := styles{
		header:       base.Bold(true),
		panel:        panel,
		panelFocused: panel.BorderStyle(lipgloss.ThickBorder()),
		panelTitle:   base.Bold(true),
		cursor:       base.Bold(true),
		selected:     base.Bold(true),
		done:         base,
		sender:       base.Bold(true),
		system:       base.Italic(true),
		muted:        base,
		status:       base,
		errStatus:    base.Bold(true),
	}
	if noColor {
		return st
	}

	accent := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	st.header = st.header.Foreground(accent)
	st.panelFocused = st.panelFocused.BorderForeground(accent)
	st.panelTitle = st.panelTitle.Foreground(accent)
	st.cursor = st.cursor.Foreground(pink)
	st.selected = st.selected.Foreground(mint)
	st.done = st.done.Foreground(muted).Strikethrough(true)
	st.sender = st.sender.Foreground(mint)
	st.system = st.system.Foreground(lipgloss.Color("#ffd166"))
	st.muted = st.muted.Foreground(muted)
	st.status = st.status.Foreground(accent)
	st.errStatus = st.errStatus.Foreground(pink)
	return st
}
