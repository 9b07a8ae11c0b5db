package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dasmlab/parley/pkg/translate"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ProviderServicePrefix prefixes the per-provider health service names,
// e.g. "parley.provider.google".
const ProviderServicePrefix = "parley.provider."

// HealthChecker reports the health of every provider.
type HealthChecker interface {
	Default() translate.ProviderKind
	CheckHealth(ctx context.Context) map[translate.ProviderKind]error
}

// HealthServer exposes the standard grpc.health.v1 service. The overall
// status ("") follows the default provider; every provider also has its
// own service name.
type HealthServer struct {
	checker HealthChecker
	logger  *logrus.Logger
	grpc    *grpc.Server
	health  *health.Server
}

// NewHealthServer creates a gRPC server with the health service registered.
func NewHealthServer(checker HealthChecker, logger *logrus.Logger) *HealthServer {
	if logger == nil {
		logger = logrus.New()
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              30 * time.Second,
			Timeout:           10 * time.Second,
		}),
	}

	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	reflection.Register(s)

	// Not serving until the first refresh.
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		checker: checker,
		logger:  logger,
		grpc:    s,
		health:  hs,
	}
}

// Refresh runs provider health checks and updates the serving status.
func (h *HealthServer) Refresh(ctx context.Context) {
	results := h.checker.CheckHealth(ctx)
	for kind, err := range results {
		h.health.SetServingStatus(ProviderServicePrefix+kind.String(), servingStatus(err))
	}

	overall := servingStatus(results[h.checker.Default()])
	h.health.SetServingStatus("", overall)

	h.logger.WithFields(logrus.Fields{
		"default_provider": h.checker.Default(),
		"status":           overall.String(),
	}).Debug("Refreshed gRPC health status")
}

// RunRefresher refreshes the health status every interval until ctx is done.
func (h *HealthServer) RunRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ticker.C:
			h.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check answers a health check in-process, without a network round trip.
func (h *HealthServer) Check(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve accepts gRPC connections on lis until Shutdown.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.WithFields(logrus.Fields{
		"addr": lis.Addr().String(),
	}).Info("gRPC health server listening")
	if err := h.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// Shutdown marks every service NOT_SERVING and stops the server,
// forcing the stop when ctx expires first.
func (h *HealthServer) Shutdown(ctx context.Context) {
	h.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		h.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		h.logger.Info("gRPC health server stopped gracefully")
	case <-ctx.Done():
		h.logger.Warn("Graceful shutdown timeout, forcing gRPC stop...")
		h.grpc.Stop()
	}
}

func servingStatus(err error) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}
