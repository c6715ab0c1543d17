package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps the HTTP server for the JSON API and gallery files.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	cancel     context.CancelFunc
}

// NewServer registers the handler's routes behind the logging and CORS
// middleware.
func NewServer(handler *Handler, addr string) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     Logging(Cors(mux)),
			ReadTimeout: 15 * time.Second,
			// generations wait on the provider
			WriteTimeout: 3 * time.Minute,
		},
		handler: handler,
	}
}

// Start watches the gallery directory and serves until Shutdown. It returns
// nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.handler.gallery != nil {
		go func() {
			if err := s.handler.gallery.Watch(ctx); err != nil {
				slog.Warn("gallery watcher stopped", "error", err)
			}
		}()
	}

	slog.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for background queue runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.handler.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("queue runs still active at shutdown")
	}
	return err
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
