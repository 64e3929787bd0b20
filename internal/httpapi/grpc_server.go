package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"librix.org/internal/obs"
)

const serviceName = "librix-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// GRPCServer serves the standard health protocol so orchestrators can probe
// the process over gRPC as well as HTTP.
type GRPCServer struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
	version   string
}

// NewGRPCServer creates the gRPC service wrapper.
func NewGRPCServer(r readinessChecker, version string) *GRPCServer {
	return &GRPCServer{
		readiness: r,
		version:   version,
	}
}

// Check evaluates readiness. On failure it reports NOT_SERVING rather than
// an RPC error so probes can distinguish "down" from "unreachable".
func (s *GRPCServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}

// Watch streams the current status once per interval until the client goes
// away.
func (s *GRPCServer) Watch(req *healthpb.HealthCheckRequest, srv healthpb.Health_WatchServer) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	send := func() error {
		resp, err := s.Check(srv.Context(), req)
		if err != nil {
			return err
		}
		return srv.Send(resp)
	}
	if err := send(); err != nil {
		return status.Errorf(codes.Unavailable, "watch send: %v", err)
	}
	for {
		select {
		case <-srv.Context().Done():
			return nil
		case <-ticker.C:
			if err := send(); err != nil {
				return status.Errorf(codes.Unavailable, "watch send: %v", err)
			}
		}
	}
}
