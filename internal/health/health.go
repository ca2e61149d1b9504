// Package health reports readiness over the standard gRPC health protocol. Status is SERVING only
// while the store answers a ping and the permission policy still evaluates.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "user-account-service"

const (
	defaultInterval = 10 * time.Second
	probeTimeout    = 3 * time.Second
)

// Pinger is used for readiness (e.g. the user repository). If nil, the store check is skipped.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker is used for readiness (e.g. the OPA evaluator). If nil, the policy check is skipped.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker drives the serving status of a grpc health server from periodic probes.
type Checker struct {
	server   *grpchealth.Server
	pinger   Pinger
	policy   PolicyChecker
	interval time.Duration
	logger   *zap.Logger
}

// NewChecker returns a Checker whose status starts as NOT_SERVING until the first probe.
// A non-positive interval uses 10s. A nil logger disables logging.
func NewChecker(pinger Pinger, policy PolicyChecker, interval time.Duration, logger *zap.Logger) *Checker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{
		server:   grpchealth.NewServer(),
		pinger:   pinger,
		policy:   policy,
		interval: interval,
		logger:   logger,
	}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Server returns the health service to register on a grpc server.
func (c *Checker) Server() healthpb.HealthServer {
	return c.server
}

// Probe runs the checks once, updates the serving status and returns it.
func (c *Checker) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx); err != nil {
			c.logger.Warn("health: store ping failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			c.logger.Warn("health: policy check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	c.set(status)
	return status
}

// Run probes immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.Probe(ctx)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Probe(ctx)
		}
	}
}

// Shutdown sets every status to NOT_SERVING and ignores later updates.
func (c *Checker) Shutdown() {
	c.server.Shutdown()
}

func (c *Checker) set(status healthpb.HealthCheckResponse_ServingStatus) {
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
}
