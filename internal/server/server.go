// Package server hosts the HTTP surface of talkdeck: the /ws-audio
// websocket endpoint, the session API, health probes, and the Prometheus
// metrics endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talkdeck/talkdeck/internal/health"
	"github.com/talkdeck/talkdeck/internal/observe"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// Server bundles the HTTP listener and its routes.
type Server struct {
	addr string
	srv  *http.Server
	log  *slog.Logger
}

// New assembles the route table and wraps it in the observability
// middleware. The websocket endpoint stays outside the middleware: its
// requests are long-lived and per-request latency histograms would only
// distort the data.
func New(addr string, audioHandler *AudioHandler, api *API, healthHandler *health.Handler, metrics *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	apiMux := http.NewServeMux()
	api.Register(apiMux)
	healthHandler.Register(apiMux)
	apiMux.Handle("GET /metrics", promhttp.Handler())

	root := http.NewServeMux()
	root.Handle("/ws-audio", audioHandler)
	root.Handle("/", observe.Middleware(metrics)(apiMux))

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: root,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. It blocks
// for the lifetime of the server and returns the first fatal listener error,
// or nil on clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", slog.String("addr", s.addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
