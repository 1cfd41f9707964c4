// Package probe serves the gRPC health protocol for orchestrators. Each
// dependency check is exposed as its own service name; the empty name reports
// SERVING only while every check passes.
package probe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const checkTimeout = 2 * time.Second

// Check is one named dependency probe, e.g. a database ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server owns the gRPC listener and the health status table.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks []Check
	log    *zap.Logger
}

// New builds a probe server. All services start NOT_SERVING until Refresh runs.
func New(log *zap.Logger, checks ...Check) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		grpc: grpc.NewServer(grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		)),
		health: health.NewServer(),
		checks: checks,
		log:    log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for _, c := range checks {
		s.health.SetServingStatus(c.Name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// Refresh runs every check once and publishes the results. It returns true when
// all checks pass.
func (s *Server) Refresh(ctx context.Context) bool {
	ok := true
	for _, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			ok = false
			st = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
		}
		s.health.SetServingStatus(c.Name, st)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !ok {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return ok
}

// Run refreshes the status table every interval until ctx is done.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

// Serve blocks serving probes on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("health probe listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains in-flight probes, forcing
// a stop after timeout.
func (s *Server) Stop(timeout time.Duration) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.grpc.Stop()
	}
}
