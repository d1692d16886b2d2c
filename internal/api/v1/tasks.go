package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/prono/internal/api/ws"
	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

type CreateTaskInput struct {
	ProjectID int64 `path:"id" doc:"Project ID"`
	Body      struct {
		Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
		Description string `json:"description,omitempty" doc:"Task description"`
		DueDate     string `json:"due_date,omitempty" format:"date" doc:"Due date (YYYY-MM-DD)"`
	}
}

type CreateTaskOutput struct {
	Body *domain.Task
}

type CompleteTaskInput struct {
	ID int64 `path:"id" doc:"Task ID"`
}

type CompleteTaskOutput struct {
	Body *domain.Task
}

// RegisterTaskRoutes registers task mutations. Completing a task announces
// it in the project's live room through notifier.
func RegisterTaskRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-task",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/tasks",
		Summary:     "Create a task in a project",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CreateTaskInput) (*CreateTaskOutput, error) {
		if _, err := store.Projects().GetByID(ctx, input.ProjectID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("project not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate project")
		}

		t, err := domain.NewTask(input.ProjectID, strings.TrimSpace(input.Body.Title))
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		t.Description = input.Body.Description
		if input.Body.DueDate != "" {
			due, err := time.Parse(time.DateOnly, input.Body.DueDate)
			if err != nil {
				return nil, huma.Error400BadRequest("due_date must be YYYY-MM-DD")
			}
			t.DueDate = &domain.Date{Time: due}
		}

		if err := store.Tasks().Create(ctx, t); err != nil {
			return nil, huma.Error500InternalServerError("failed to create task", err)
		}

		return &CreateTaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/projects/tasks/{id}/complete",
		Summary:     "Mark a task as completed",
		Description: "Only the owner of the task's project may complete it.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *CompleteTaskInput) (*CompleteTaskOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		t, err := store.Tasks().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to get task", err)
		}

		p, err := store.Projects().GetByID(ctx, t.ProjectID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("project not found")
			}
			return nil, huma.Error500InternalServerError("failed to get project", err)
		}
		if p.OwnerID != userID {
			return nil, huma.Error403Forbidden("you do not have permission to complete this task")
		}

		if err := store.Tasks().SetCompleted(ctx, t.ID, true); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to complete task", err)
		}
		t.IsCompleted = true

		// The completion stands even when nobody could be told about it.
		if err := notifier.Notify(ctx, p.ID, ws.TaskCompletedText(t.Title)); err != nil {
			log.Warn().Err(err).Int64("task_id", t.ID).Int64("project_id", p.ID).Msg("v1: completion notice not delivered")
		}

		return &CompleteTaskOutput{Body: t}, nil
	})
}
