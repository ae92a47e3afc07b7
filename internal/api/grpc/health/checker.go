// Package health reports dependency health through the standard gRPC
// health service.
package health

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Willamette-OR/microblog/internal/logger"
)

// Probe checks a single dependency.
type Probe interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker pings every registered probe and publishes the result. Each
// probe is its own health service; the empty service name is SERVING only
// while all probes pass.
type Checker struct {
	server   *health.Server
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	mu     sync.Mutex
	names  []string
	probes map[string]Probe
	last   map[string]bool
}

func NewChecker(server *health.Server, interval time.Duration, logger *logger.Logger) *Checker {
	return &Checker{
		server:   server,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
		probes:   make(map[string]Probe),
		last:     make(map[string]bool),
	}
}

// Add registers probe under service.
func (c *Checker) Add(service string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.probes[service]; !ok {
		c.names = append(c.names, service)
	}
	c.probes[service] = probe
	c.server.SetServingStatus(service, healthpb.HealthCheckResponse_UNKNOWN)
}

// Check runs every probe once and reports whether all passed.
func (c *Checker) Check(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	healthy := true
	for _, name := range c.names {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.probes[name].Ping(pctx)
		cancel()

		ok := err == nil
		if prev, seen := c.last[name]; !seen || prev != ok {
			if ok {
				c.logger.Info("Health: dependency is up", "service", name)
			} else {
				c.logger.Warn("Health: dependency is down", "service", name, "error", err)
			}
		}
		c.last[name] = ok
		c.server.SetServingStatus(name, status(ok))
		healthy = healthy && ok
	}

	c.server.SetServingStatus("", status(healthy))
	return healthy
}

// Run checks on every tick until ctx is done, then marks everything as
// not serving.
func (c *Checker) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return nil
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func status(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
