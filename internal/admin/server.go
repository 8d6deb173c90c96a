// Package admin implements C9: a net/http admin/metrics surface exposing
// C7's packet-stats Prometheus collectors and a liveness probe. It carries
// no gameplay scope of its own (SPEC_FULL.md §2).
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the admin HTTP surface: Prometheus metrics at /metrics and a
// liveness probe at /healthz.
type Server struct {
	http *http.Server
	log  *logrus.Entry
}

// New builds an admin server bound to addr, registering collectors against
// a private registry (not the global default registry, so tests and
// multiple instances never collide).
func New(addr string, collectors ...prometheus.Collector) *Server {
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		reg.MustRegister(c)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logrus.WithField("component", "admin"),
	}
}

// ListenAndServe starts serving until the server is shut down or a fatal
// error occurs. ErrServerClosed is not treated as a failure.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.http.Addr).Info("admin server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
