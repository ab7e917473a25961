// Package grpcserver exposes the studio service's gRPC surface: the standard health service.
package grpcserver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name the studio service registers under in the health service.
const ServiceName = "inkdesk.studio.v1.StudioService"

// Health reports SERVING while every readiness check passes.
type Health struct {
	srv    *health.Server
	checks []runtime.ReadyCheck
	logger *slog.Logger
	every  time.Duration
}

func NewHealth(logger *slog.Logger, every time.Duration, checks ...runtime.ReadyCheck) *Health {
	if every <= 0 {
		every = 10 * time.Second
	}
	h := &Health{srv: health.NewServer(), checks: checks, logger: logger, every: every}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to srv.
func (h *Health) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.srv)
}

// Refresh runs the checks once and publishes the result.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	failures := runtime.RunChecks(ctx, 2*time.Second, h.checks...)
	status := healthpb.HealthCheckResponse_SERVING
	if len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("health check failing", "failures", strings.Join(failures, "; "))
	}
	h.set(status)
	return status
}

// Run refreshes on every tick until ctx ends, then marks everything NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	h.Refresh(ctx)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
}
