package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/prono/internal/api/v1"
	"github.com/gosuda/prono/internal/api/ws"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store v1.DataStore, hub *ws.Hub) {
	v1.RegisterProjectRoutes(api, store)
	v1.RegisterTaskRoutes(api, store, hub)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/projects/{projectID}/", hub.ServeProject)
	r.Get("/projects/{projectID}", hub.ServeProject)
}
