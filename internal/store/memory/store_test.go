package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/store/memory"
)

func seedUser(t *testing.T, s *memory.Store, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, PasswordHash: "x"}
	require.NoError(t, s.Users().Create(t.Context(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	t.Parallel()

	s := memory.New()
	ctx := t.Context()

	u := seedUser(t, s, "admin")
	assert.Positive(t, u.ID)

	got, err := s.Users().GetByUsername(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)

	err = s.Users().Create(ctx, &domain.User{Username: "Admin"})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.Users().GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectRepo_ListOrderedByName(t *testing.T) {
	t.Parallel()

	s := memory.New()
	ctx := t.Context()
	owner := seedUser(t, s, "admin")

	for _, name := range []string{"Zeta", "Alpha", "Mu"} {
		p, err := domain.NewProject(owner.ID, name, "")
		require.NoError(t, err)
		require.NoError(t, s.Projects().Create(ctx, p))
	}

	list, err := s.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Alpha", "Mu", "Zeta"}, []string{list[0].Name, list[1].Name, list[2].Name})

	_, err = s.Projects().GetByID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = s.Projects().Create(ctx, &domain.Project{Name: "orphan", OwnerID: 999})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_OrderAndCompletion(t *testing.T) {
	t.Parallel()

	s := memory.New()
	ctx := t.Context()
	owner := seedUser(t, s, "admin")
	p := &domain.Project{Name: "P", OwnerID: owner.ID}
	require.NoError(t, s.Projects().Create(ctx, p))

	day := func(d int) *domain.Date {
		return &domain.Date{Time: time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)}
	}
	tasks := []*domain.Task{
		{ProjectID: p.ID, Title: "undated"},
		{ProjectID: p.ID, Title: "late", DueDate: day(20)},
		{ProjectID: p.ID, Title: "early", DueDate: day(2)},
		{ProjectID: p.ID, Title: "done", DueDate: day(1)},
	}
	for _, task := range tasks {
		require.NoError(t, s.Tasks().Create(ctx, task))
	}
	require.NoError(t, s.Tasks().SetCompleted(ctx, tasks[3].ID, true))

	list, err := s.Tasks().ListByProject(ctx, p.ID)
	require.NoError(t, err)

	titles := make([]string, len(list))
	for i, task := range list {
		titles[i] = task.Title
	}
	assert.Equal(t, []string{"early", "late", "undated", "done"}, titles)

	got, err := s.Tasks().GetByID(ctx, tasks[3].ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)

	require.ErrorIs(t, s.Tasks().SetCompleted(ctx, 999, true), domain.ErrNotFound)
	require.ErrorIs(t, s.Tasks().Create(ctx, &domain.Task{ProjectID: 999, Title: "x"}), domain.ErrNotFound)

	other, err := s.Tasks().ListByProject(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepos_ReturnCopies(t *testing.T) {
	t.Parallel()

	s := memory.New()
	ctx := t.Context()
	owner := seedUser(t, s, "admin")
	p := &domain.Project{Name: "P", OwnerID: owner.ID}
	require.NoError(t, s.Projects().Create(ctx, p))

	p.Name = "changed after create"
	got, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "P", got.Name)

	got.Name = "changed after read"
	again, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "P", again.Name)
}

// ---------------------------------------------------------------------------
// Broker
// ---------------------------------------------------------------------------

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("no message")
		return ""
	}
}

func TestBroker_FanOutPerChannel(t *testing.T) {
	t.Parallel()

	b := memory.NewBroker()
	ctx := t.Context()

	a1, cleanA1, err := b.Subscribe(ctx, domain.RoomChannel(1))
	require.NoError(t, err)
	defer cleanA1()
	a2, cleanA2, err := b.Subscribe(ctx, domain.RoomChannel(1))
	require.NoError(t, err)
	defer cleanA2()
	other, cleanOther, err := b.Subscribe(ctx, domain.RoomChannel(2))
	require.NoError(t, err)
	defer cleanOther()

	require.NoError(t, b.Publish(ctx, domain.RoomChannel(1), []byte("one")))
	require.NoError(t, b.Publish(ctx, domain.RoomChannel(1), []byte("two")))

	assert.Equal(t, "one", receive(t, a1))
	assert.Equal(t, "two", receive(t, a1))
	assert.Equal(t, "one", receive(t, a2))
	assert.Equal(t, "two", receive(t, a2))

	select {
	case msg := <-other:
		t.Fatalf("unexpected message on other room: %s", msg)
	default:
	}
}

func TestBroker_CleanupAndContextCloseStream(t *testing.T) {
	t.Parallel()

	b := memory.NewBroker()

	ch, cleanup, err := b.Subscribe(t.Context(), "room")
	require.NoError(t, err)
	cleanup()
	cleanup() // idempotent
	_, ok := <-ch
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(t.Context())
	ch, _, err = b.Subscribe(ctx, "room")
	require.NoError(t, err)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing to a room with no subscribers is fine.
	require.NoError(t, b.Publish(t.Context(), "room", []byte("x")))
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	b := memory.NewBroker()
	_, cleanup, err := b.Subscribe(t.Context(), "room")
	require.NoError(t, err)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			_ = b.Publish(t.Context(), "room", []byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
