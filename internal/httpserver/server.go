package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/julianstephens/habitkeep/internal/config"
	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/service"
	"github.com/julianstephens/habitkeep/internal/storage"
)

// Deps is what the handlers need. The server acts for a single configured user.
type Deps struct {
	Service   *service.Service
	User      storage.User
	Version   string
	StartTime time.Time
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool
}

// Server wraps the HTTP server and its router.
type Server struct {
	http *http.Server
}

// New builds the router, middlewares and routes.
func New(cfg config.HTTPConfig, d Deps) *Server {
	return &Server{
		http: &http.Server{
			Addr:              cfg.Listen,
			Handler:           NewRouter(cfg, d),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}
}

func NewRouter(cfg config.HTTPConfig, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(accessLog)

	h := &handlers{Deps: d}
	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/habits", h.listHabits)
		r.Post("/habits", h.addHabit)
		r.Patch("/habits/{id}", h.updateHabit)
		r.Delete("/habits/{id}", h.removeHabit)
		r.Put("/habits/{id}/records/{day}", h.tickHabit)
		r.Put("/order", h.setOrder)
		r.Post("/sync", h.sync)
		r.Post("/import", h.importHabits)
		r.Get("/export", h.export)

		r.Get("/session/habits", h.sessionHabits)
		r.Put("/session/habits", h.syncSession)
		r.Delete("/session", h.endSession)
	})
	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	logger.Info("HTTP server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
