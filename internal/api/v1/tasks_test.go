package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/prono/internal/api/v1"
	"github.com/gosuda/prono/internal/domain"
)

func projectRepoWith(p *domain.Project) *mockProjectRepo {
	return &mockProjectRepo{
		getByIDFunc: func(_ context.Context, id int64) (*domain.Project, error) {
			if p == nil || id != p.ID {
				return nil, domain.ErrNotFound
			}
			cp := *p
			return &cp, nil
		},
	}
}

// ---------------------------------------------------------------------------
// POST /projects/{id}/tasks
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		var created *domain.Task
		store := &mockDataStore{
			projects: projectRepoWith(&domain.Project{ID: 4, Name: "Alpha", OwnerID: 1}),
			tasks: &mockTaskRepo{
				createFunc: func(_ context.Context, task *domain.Task) error {
					task.ID = 12
					created = task
					return nil
				},
			},
		}
		v1.RegisterTaskRoutes(api, store, &recordingNotifier{})

		resp := api.PostCtx(userCtx(1), "/projects/4/tasks", map[string]any{
			"title":    "write docs",
			"due_date": "2026-11-01",
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, int64(12), body.ID)
		assert.Equal(t, "write docs", body.Title)
		assert.False(t, body.IsCompleted)
		require.NotNil(t, created)
		assert.Equal(t, int64(4), created.ProjectID)
		require.NotNil(t, created.DueDate)
		assert.Equal(t, "2026-11-01", created.DueDate.Format("2006-01-02"))
	})

	t.Run("unknown_project", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{projects: projectRepoWith(nil), tasks: &mockTaskRepo{}}
		v1.RegisterTaskRoutes(api, store, &recordingNotifier{})

		resp := api.PostCtx(userCtx(1), "/projects/4/tasks", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("blank_title", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			projects: projectRepoWith(&domain.Project{ID: 4, Name: "Alpha", OwnerID: 1}),
			tasks:    &mockTaskRepo{},
		}
		v1.RegisterTaskRoutes(api, store, &recordingNotifier{})

		resp := api.PostCtx(userCtx(1), "/projects/4/tasks", map[string]any{"title": "  "})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /projects/tasks/{id}/complete
// ---------------------------------------------------------------------------

func TestCompleteTask(t *testing.T) {
	t.Parallel()

	owned := &domain.Project{ID: 4, Name: "Alpha", OwnerID: 1}

	taskRepo := func(completed *[]int64) *mockTaskRepo {
		return &mockTaskRepo{
			getByIDFunc: func(_ context.Context, id int64) (*domain.Task, error) {
				if id != 12 {
					return nil, domain.ErrNotFound
				}
				return &domain.Task{ID: 12, ProjectID: 4, Title: "write docs"}, nil
			},
			setCompletedFunc: func(_ context.Context, id int64, done bool) error {
				if done {
					*completed = append(*completed, id)
				}
				return nil
			},
		}
	}

	t.Run("owner_completes_and_room_is_notified", func(t *testing.T) {
		t.Parallel()

		var completed []int64
		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{projects: projectRepoWith(owned), tasks: taskRepo(&completed)}, notifier)

		resp := api.PostCtx(userCtx(1), "/projects/tasks/12/complete")
		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Task
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.True(t, body.IsCompleted)
		assert.Equal(t, []int64{12}, completed)

		notices := notifier.sent()
		require.Len(t, notices, 1)
		assert.Equal(t, int64(4), notices[0].projectID)
		assert.Equal(t, "✅ The task 'write docs' has been completed.", notices[0].text)
	})

	t.Run("notify_failure_still_succeeds", func(t *testing.T) {
		t.Parallel()

		var completed []int64
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api,
			&mockDataStore{projects: projectRepoWith(owned), tasks: taskRepo(&completed)},
			&recordingNotifier{err: errors.New("broker down")})

		resp := api.PostCtx(userCtx(1), "/projects/tasks/12/complete")
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []int64{12}, completed)
	})

	t.Run("non_owner_forbidden", func(t *testing.T) {
		t.Parallel()

		var completed []int64
		notifier := &recordingNotifier{}
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{projects: projectRepoWith(owned), tasks: taskRepo(&completed)}, notifier)

		resp := api.PostCtx(userCtx(2), "/projects/tasks/12/complete")
		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Empty(t, completed)
		assert.Empty(t, notifier.sent())
	})

	t.Run("unknown_task", func(t *testing.T) {
		t.Parallel()

		var completed []int64
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{projects: projectRepoWith(owned), tasks: taskRepo(&completed)}, &recordingNotifier{})

		resp := api.PostCtx(userCtx(1), "/projects/tasks/99/complete")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		var completed []int64
		_, api := humatest.New(t)
		v1.RegisterTaskRoutes(api, &mockDataStore{projects: projectRepoWith(owned), tasks: taskRepo(&completed)}, &recordingNotifier{})

		resp := api.PostCtx(context.Background(), "/projects/tasks/12/complete")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
