package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/session"
)

func projects(names ...string) []domain.Project {
	out := make([]domain.Project, len(names))
	for i, n := range names {
		out[i] = domain.Project{ID: int64(i + 1), Name: n, OwnerID: 1}
	}
	return out
}

func TestStore_PhaseFollowsCredentialAndProjects(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	assert.Equal(t, session.PhaseUnauthenticated, s.Snapshot().Phase)

	require.True(t, s.SetCredential("tok123"))
	assert.Equal(t, session.PhaseLoadingProjects, s.Snapshot().Phase)
	assert.False(t, s.SetCredential("tok123"), "same credential is not a change")

	s.ReplaceProjects(nil)
	assert.Equal(t, session.PhaseReady, s.Snapshot().Phase)

	require.True(t, s.SetCredential(""))
	assert.Equal(t, session.PhaseUnauthenticated, s.Snapshot().Phase)
}

func TestStore_ReplaceProjectsSelectsFirstWhenNothingSelected(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	s.SetCredential("tok")

	changed := s.ReplaceProjects(projects("Zeta", "Alpha"))
	require.True(t, changed)

	snap := s.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "Zeta", snap.Selected.Name, "server order, not client-sorted")

	// A later list keeps the existing selection.
	changed = s.ReplaceProjects(projects("Alpha", "Zeta"))
	assert.False(t, changed)
	assert.Equal(t, int64(1), s.Snapshot().Selected.ID)
}

func TestStore_ReplaceProjectsEmptyListSelectsNothing(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	assert.False(t, s.ReplaceProjects(nil))
	assert.Nil(t, s.Snapshot().Selected)
}

func TestStore_SelectClearsEventsAndTasks(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	s.ReplaceProjects(projects("A", "B"))
	s.ReplaceTasks([]domain.Task{{ID: 7, Title: "t"}})
	s.AppendEvent(domain.LiveEvent{Kind: domain.EventChatMessage, Text: "hi"})

	b, ok := s.Project(2)
	require.True(t, ok)
	require.True(t, s.Select(&b))

	snap := s.Snapshot()
	assert.Empty(t, snap.Events)
	assert.Empty(t, snap.Tasks)
	assert.Equal(t, int64(2), snap.Selected.ID)

	assert.False(t, s.Select(&b), "re-selecting the same project is not a change")

	require.True(t, s.Select(nil))
	assert.Nil(t, s.Snapshot().Selected)
	assert.Empty(t, s.Snapshot().Tasks)
}

func TestStore_LogoutDropsDerivedState(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	s.SetCredential("tok")
	s.ReplaceProjects(projects("A"))
	s.ReplaceTasks([]domain.Task{{ID: 1}})
	s.SetConnection(domain.Connected)
	s.AppendEvent(domain.LiveEvent{Kind: domain.EventChatMessage})
	s.SetFailure("boom")

	s.SetCredential("")

	snap := s.Snapshot()
	assert.Empty(t, snap.Credential)
	assert.Empty(t, snap.Projects)
	assert.Nil(t, snap.Selected)
	assert.Empty(t, snap.Tasks)
	assert.Empty(t, snap.Events)
	assert.Equal(t, domain.Disconnected, snap.Connection)
	assert.Empty(t, snap.Failure)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	s.ReplaceProjects(projects("A"))
	s.AppendEvent(domain.LiveEvent{Kind: domain.EventChatMessage, Text: "one"})

	snap := s.Snapshot()
	snap.Projects[0].Name = "mutated"
	snap.Selected.Name = "mutated"
	snap.Events[0].Text = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "A", again.Projects[0].Name)
	assert.Equal(t, "A", again.Selected.Name)
	assert.Equal(t, "one", again.Events[0].Text)
}

func TestStore_VersionBumpsOnlyOnChange(t *testing.T) {
	t.Parallel()

	s := session.NewStore()
	v := s.Version()

	s.SetConnection(domain.Disconnected)
	s.ClearEvents()
	assert.Equal(t, v, s.Version())

	s.SetConnection(domain.Connecting)
	assert.Greater(t, s.Version(), v)
}

func TestSnapshot_Task(t *testing.T) {
	t.Parallel()

	snap := session.Snapshot{Tasks: []domain.Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}}

	got, ok := snap.Task(2)
	require.True(t, ok)
	assert.Equal(t, "b", got.Title)

	_, ok = snap.Task(3)
	assert.False(t, ok)
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unauthenticated", session.PhaseUnauthenticated.String())
	assert.Equal(t, "loading_projects", session.PhaseLoadingProjects.String())
	assert.Equal(t, "ready", session.PhaseReady.String())
}
