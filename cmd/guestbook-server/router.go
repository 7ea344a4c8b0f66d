package main

import (
	"database/sql"
	"net/http"

	"guestbook-board/internal/handler"
	"guestbook-board/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routerDeps struct {
	messages       *handler.MessageHandler
	db             *sql.DB
	broker         handler.Broker // nil when events are disabled
	allowedOrigins string
	openAPI        *middleware.OpenAPIValidatorConfig
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(middleware.ParseOrigins(deps.allowedOrigins)))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(deps.db, deps.broker))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OpenAPIValidator(deps.openAPI))

		r.Get("/messages", deps.messages.List)
		r.Post("/messages", deps.messages.Create)
		r.Patch("/messages", deps.messages.Edit)
		r.Put("/messages", deps.messages.Rearrange)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
