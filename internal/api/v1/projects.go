package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/prono/internal/domain"
	"github.com/gosuda/prono/internal/server/middleware"
)

type CreateProjectInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"200" doc:"Project name"`
		Description string `json:"description,omitempty" maxLength:"2000" doc:"Project description"`
	}
}

type CreateProjectOutput struct {
	Body *domain.Project
}

type ListProjectsInput struct{}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type GetProjectInput struct {
	ID int64 `path:"id" doc:"Project ID"`
}

type GetProjectOutput struct {
	Body *domain.ProjectDetail
}

func RegisterProjectRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/projects/",
		Summary:     "Create a project owned by the caller",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *CreateProjectInput) (*CreateProjectOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		p, err := domain.NewProject(userID, strings.TrimSpace(input.Body.Name), input.Body.Description)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		if createErr := store.Projects().Create(ctx, p); createErr != nil {
			return nil, huma.Error500InternalServerError("failed to create project", createErr)
		}

		return &CreateProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects/",
		Summary:     "List projects ordered by name",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *ListProjectsInput) (*ListProjectsOutput, error) {
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list projects", err)
		}
		if projects == nil {
			projects = []*domain.Project{}
		}

		return &ListProjectsOutput{Body: projects}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project with its tasks",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *GetProjectInput) (*GetProjectOutput, error) {
		p, err := store.Projects().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("project not found")
			}
			return nil, huma.Error500InternalServerError("failed to get project", err)
		}

		tasks, err := store.Tasks().ListByProject(ctx, p.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}

		detail := &domain.ProjectDetail{Project: *p, Tasks: make([]domain.Task, 0, len(tasks))}
		for _, t := range tasks {
			detail.Tasks = append(detail.Tasks, *t)
		}

		return &GetProjectOutput{Body: detail}, nil
	})
}
