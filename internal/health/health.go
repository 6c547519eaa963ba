// Package health exposes the standard gRPC health service so orchestrators
// can probe the worker process.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "retention-service"

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// New returns a Server reporting NOT_SERVING until SetServing(true).
func New(logger *slog.Logger) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, logger: logger.With("system", "health")}
	s.SetServing(false)
	return s
}

// SetServing flips the reported status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// ListenAndServe serves on :port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("health listen :%s: %w", port, err)
	}
	s.logger.Info("Health server listening", "port", port)
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()

	err := s.grpc.Serve(lis)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health serve: %w", err)
	}
	<-stopped
	return nil
}
