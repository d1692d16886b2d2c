package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/prono/internal/session"
)

type snapshotMsg session.Snapshot

// Feed carries session snapshots into the program. Only the newest
// snapshot is kept, so Observe never blocks the session loop.
type Feed struct {
	ch chan session.Snapshot
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan session.Snapshot, 1)}
}

// Observe is meant to be installed as session.Options.Observer. It must be
// called from a single goroutine.
func (f *Feed) Observe(snap session.Snapshot) {
	for {
		select {
		case f.ch <- snap:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-f.ch)
	}
}
