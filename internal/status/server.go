package status

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	service *Service
}

func NewServer(service *Service) *Router {
	return &Router{
		service: service,
	}
}

// Start blocks serving the status surface
func (r *Router) Start(port int) error {
	cr := chi.NewRouter()

	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)
	cr.Use(middleware.Compress(9))

	cr.Get("/health", r.service.Health)
	cr.Get("/cursors", r.service.Cursors)

	return http.ListenAndServe(fmt.Sprintf(":%v", port), cr)
}
