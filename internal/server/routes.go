package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/svckit/svckit/internal/server/handlers"
)

// registerRoutes mounts all endpoints on the router.
func (s *Server) registerRoutes() {
	hm := handlers.NewHealthManager(handlers.AppVersion)
	hm.RegisterChecker("store", handlers.HealthCheckerFunc(s.store.Ping))
	if s.recorder != nil {
		hm.RegisterChecker("audit", s.recorder)
	}

	s.router.Get("/health", hm.HealthHandler)
	s.router.Get("/version", handlers.VersionHandler)
	if s.metrics != nil {
		s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	users := handlers.NewUsers(s.store)
	products := handlers.NewProducts(s.store)
	auditTrail := handlers.NewAudit(s.store)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/", users.Create)
			r.Get("/", users.List)
			r.Get("/{id}", users.Get)
			r.Put("/{id}", users.Update)
			r.Delete("/{id}", users.Delete)
		})
		r.Route("/product", func(r chi.Router) {
			r.Post("/", products.Create)
			r.Get("/", products.List)
			r.Get("/{id}", products.Get)
			r.Put("/{id}", products.Update)
			r.Delete("/{id}", products.Delete)
		})
		r.Get("/audit", auditTrail.List)
	})
}
