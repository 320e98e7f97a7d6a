package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each check when NewChecker gets zero.
const DefaultTimeout = 2 * time.Second

// NewChecker creates a checker that gives each check at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		timeout:     timeout,
	}
}

// Register adds a check to the status report.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RegisterReadiness adds a check that gates readiness.
func (c *Checker) RegisterReadiness(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyChecks[name] = check
}

// RegisterLiveness adds a check that gates liveness.
func (c *Checker) RegisterLiveness(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveChecks[name] = check
}

// Check runs every status check.
func (c *Checker) Check(ctx context.Context) Response {
	return c.run(ctx, c.snapshot(c.checks))
}

// CheckReadiness runs the readiness checks.
func (c *Checker) CheckReadiness(ctx context.Context) Response {
	return c.run(ctx, c.snapshot(c.readyChecks))
}

// CheckLiveness runs the liveness checks.
func (c *Checker) CheckLiveness(ctx context.Context) Response {
	return c.run(ctx, c.snapshot(c.liveChecks))
}

func (c *Checker) snapshot(m map[string]CheckFunc) map[string]CheckFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]CheckFunc, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// run executes checks concurrently, each under its own timeout.
func (c *Checker) run(ctx context.Context, checks map[string]CheckFunc) Response {
	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, fn := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			check := fn(checkCtx)
			if check.Name == "" {
				check.Name = name
			}
			if checkCtx.Err() != nil && check.Status == StatusHealthy {
				check.Status = StatusUnhealthy
				check.Message = "check timed out"
			}
			check.Duration = time.Since(start)
			check.LastChecked = start

			mu.Lock()
			response.Checks[name] = check
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	for _, check := range response.Checks {
		response.Status = worst(response.Status, check.Status)
	}
	return response
}

func worst(a, b Status) Status {
	if a == StatusUnhealthy || b == StatusUnhealthy {
		return StatusUnhealthy
	}
	if a == StatusDegraded || b == StatusDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
