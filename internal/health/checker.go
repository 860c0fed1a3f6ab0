// Package health provides periodic dependency checks with auto-recovery.
// The store and the platform backend are checked every 60 seconds.
package health

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/metrics"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
	// Optional checks are reported but do not make the daemon unhealthy.
	Optional bool
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Optional  bool      `json:"optional,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Remote is a dependency reachable over the network.
type Remote interface {
	Ping(ctx context.Context) error
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker for the record store, its data directory
// (empty for non-file stores) and the platform backend (nil when unset).
// The platform is optional: the engine falls back to local data without it.
func NewChecker(store domain.Pinger, dataDir string, platform Remote) *Checker {
	checks := []Check{
		{
			Name: "store",
			CheckFn: func(ctx context.Context) error {
				return store.Ping()
			},
			RecoverFn: func(ctx context.Context) error {
				// A second ping reopens pooled connections.
				return store.Ping()
			},
		},
	}
	if dataDir != "" {
		checks = append(checks, Check{
			Name: "data_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDataDir(dataDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(dataDir, 0o755)
			},
		})
	}
	if platform != nil {
		checks = append(checks, Check{
			Name:     "platform",
			Optional: true,
			CheckFn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				return platform.Ping(ctx)
			},
		})
	}
	return &Checker{interval: 60 * time.Second, checks: checks}
}

// SetInterval changes the period between check rounds.
func (c *Checker) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and records the results.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			Optional:  check.Optional,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			log.Printf("[health] %s: %v", check.Name, err)
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr == nil {
					metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
				}
			}
		} else {
			s.Healthy = true
		}
		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all required checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy && !s.Optional {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
