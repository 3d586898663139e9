// Package health exposes a plain-text liveness endpoint for external probes.
// There is no application logic behind it.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gembot/core/logger"
	"log/slog"

	"github.com/go-chi/chi/v5"
)

const responseBody = "gembot is running"

// Server is an optional HTTP liveness server.
type Server struct {
	srv *http.Server
}

// NewServer builds the server bound to the given port.
func NewServer(port int) *Server {
	r := chi.NewRouter()
	r.Get("/", handleProbe)
	r.Get("/healthz", handleProbe)

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in a background goroutine until Stop is called.
func (s *Server) Start() {
	go func() {
		logger.HEALTH.Info("health server listening",
			slog.String("event", "listen"),
			slog.String("addr", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.HEALTH.Error("health server failed",
				slog.String("event", "serve.fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health: shutdown: %w", err)
	}
	return nil
}

func handleProbe(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(responseBody))
}
