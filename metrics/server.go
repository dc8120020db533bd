package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celer-network/go-provernet/log"
)

var logger = log.NewLogger("metrics")

// Server exposes the collectors of a registry over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer returns nil when addr is empty, which disables the endpoint.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	if s == nil {
		return
	}
	go func() {
		logger.Info().Str("addr", s.srv.Addr).Msg("serving metrics")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
