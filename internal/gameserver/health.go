package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service name reported by the gRPC health endpoint
// alongside the overall ("") status.
const HealthServiceName = "lanes.Scoring"

// Pinger reports whether a storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService exposes grpc.health.v1.Health and keeps it in step with the
// storage backend by pinging it periodically.
type HealthService struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHealthService creates a HealthService that starts out NOT_SERVING until
// the first successful probe.
//
// Precondition: pinger and logger must be non-nil; interval must be > 0.
func NewHealthService(pinger Pinger, interval time.Duration, logger *zap.Logger) *HealthService {
	if interval <= 0 {
		panic("gameserver.NewHealthService: interval must be > 0")
	}
	h := &HealthService{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
	}
	h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *HealthService) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings the backend once and updates the reported status.
//
// Postcondition: Returns the ping error, if any.
func (h *HealthService) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.pinger.Ping(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if prev := h.status(ctx); prev != status {
		h.logger.Info("health status changed",
			zap.String("from", prev.String()),
			zap.String("to", status.String()),
			zap.Error(err),
		)
	}
	h.setStatus(status)
	return err
}

// Start probes immediately and then every interval until ctx is cancelled.
func (h *HealthService) Start(ctx context.Context) {
	_ = h.Probe(ctx)
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = h.Probe(ctx)
			}
		}
	}()
}

// Serving reports whether the last probe succeeded.
func (h *HealthService) Serving(ctx context.Context) bool {
	return h.status(ctx) == healthpb.HealthCheckResponse_SERVING
}

// Shutdown reports NOT_SERVING for every service and ignores later probes.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}

func (h *HealthService) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(HealthServiceName, status)
}

func (h *HealthService) status(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}
