package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/grpcauth"
	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

// GRPCServer carries the standard health service behind the token interceptors.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	ready  ReadyProbe
}

// NewGRPCServer creates the gRPC server. ready may be nil.
func NewGRPCServer(ready ReadyProbe, icpt *grpcauth.Interceptor, opts ...grpc.ServerOption) *GRPCServer {
	if icpt != nil {
		opts = append(opts,
			grpc.ChainUnaryInterceptor(icpt.Unary()),
			grpc.ChainStreamInterceptor(icpt.Stream()),
		)
	}
	s := &GRPCServer{
		server: grpc.NewServer(opts...),
		health: health.NewServer(),
		ready:  ready,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Server exposes the underlying server for registering further services.
func (s *GRPCServer) Server() *grpc.Server { return s.server }

// CheckReadiness probes the dependency and publishes the result on the health service.
func (s *GRPCServer) CheckReadiness(ctx context.Context) bool {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		if err := s.ready.Ping(ctx); err != nil {
			obs.Logger().Warn().Err(err).Msg("grpc readiness probe failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
	return status == healthpb.HealthCheckResponse_SERVING
}

// WatchReadiness re-probes every interval until ctx ends.
func (s *GRPCServer) WatchReadiness(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		s.CheckReadiness(probeCtx)
		cancel()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *GRPCServer) Serve(lis net.Listener) error { return s.server.Serve(lis) }

// GracefulStop marks the service as not serving and drains in-flight calls.
func (s *GRPCServer) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
