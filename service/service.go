// Package service runs the optional HTTP endpoints of op-fwts: a liveness
// probe and the Prometheus metrics.
package service

import (
	"context"
	"net"
	"strconv"

	"github.com/ethereum-optimism/infra/op-fwts/metrics"
	"github.com/ethereum/go-ethereum/log"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300
)

// Config selects where the servers listen.
type Config struct {
	MetricsHost string
	MetricsPort int
	HealthzHost string
	HealthzPort int
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer
	cfg     Config
	log     log.Logger
}

// New creates a Service. Unset addresses fall back to the defaults.
func New(cfg Config, logger log.Logger) *Service {
	if cfg.MetricsHost == "" {
		cfg.MetricsHost = MetricsHost
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = MetricsPort
	}
	if cfg.HealthzHost == "" {
		cfg.HealthzHost = HealthzHost
	}
	if cfg.HealthzPort == 0 {
		cfg.HealthzPort = HealthzPort
	}
	if logger == nil {
		logger = log.New()
	}
	return &Service{
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
}

// Start launches both servers in the background. A server that cannot
// listen is logged and counted but does not stop the run.
func (s *Service) Start() {
	s.log.Info("service starting")

	addr := net.JoinHostPort(s.cfg.HealthzHost, strconv.Itoa(s.cfg.HealthzPort))
	if err := s.Healthz.Start(addr); err != nil {
		s.log.Error("error starting healthz server", "addr", addr, "err", err)
		metrics.RecordErrorDetails("healthz", err)
	} else {
		s.log.Info("started healthz server", "addr", s.Healthz.Addr())
	}

	addr = net.JoinHostPort(s.cfg.MetricsHost, strconv.Itoa(s.cfg.MetricsPort))
	if err := s.Metrics.Start(addr); err != nil {
		s.log.Error("error starting metrics server", "addr", addr, "err", err)
		metrics.RecordErrorDetails("metrics_server", err)
	} else {
		s.log.Info("started metrics server", "addr", s.Metrics.Addr())
	}
}

// Shutdown stops both servers.
func (s *Service) Shutdown(ctx context.Context) {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown(ctx)
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown(ctx)
	s.log.Info("metrics stopped")
}
