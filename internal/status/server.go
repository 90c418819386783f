// Package status serves health, metrics and the live feed over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cryptobot/internal/model"
	"cryptobot/internal/scheduler"
)

// Source exposes the scheduler state shown on /healthz.
type Source interface {
	Stats() model.CycleStats
	State() scheduler.State
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	model.CycleStats
}

// Server is the optional local status endpoint.
type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// NewServer builds the router. metrics and feed may be nil, in which case their routes are absent.
func NewServer(logger *slog.Logger, addr string, source Source, metrics http.Handler, feed http.Handler) *Server {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:     "ok",
			State:      source.State().String(),
			CycleStats: source.Stats(),
		})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if feed != nil {
		r.Method(http.MethodGet, "/ws", feed)
	}

	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status: listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
