package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backtester/internal/core"
)

// Server exposes the engine's metrics over HTTP for the duration of a
// backtest run. It is started before the session loop and shut down
// after liquidation, so a scraper watching a long batch replay sees
// tick and trade progress live.
type Server struct {
	addr   string
	logger core.ILogger
	srv    *http.Server
}

// NewServer builds a metrics server listening on the given port.
func NewServer(port int, logger core.ILogger) *Server {
	return &Server{
		addr:   fmt.Sprintf(":%d", port),
		logger: logger.WithField("component", "telemetry"),
	}
}

// Handler returns the served routes: the Prometheus registry under
// /metrics and a liveness probe under /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start begins serving in the background. Bind failures are logged
// rather than returned; a backtest proceeds without metrics.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("serving metrics", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

// Stop drains in-flight scrapes and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	s.logger.Info("stopping metrics server", "addr", s.addr)
	return s.srv.Shutdown(ctx)
}
