// Package health runs readiness checks against the server's dependencies.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the health of a component or of the whole server
type State string

const (
	StateHealthy   State = "healthy"
	StateUnhealthy State = "unhealthy"
	StateUnknown   State = "unknown"
)

// ComponentHealth is the outcome of one check
type ComponentHealth struct {
	Name        string        `json:"name"`
	Status      State         `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Status is the aggregated result of all checks
type Status struct {
	Overall    State                      `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// Pinger is anything with a context-aware liveness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named readiness probe
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// PingCheck adapts a Pinger into a Check
func PingCheck(name string, p Pinger) Check {
	return Check{Name: name, Probe: p.Ping}
}

// Checker runs registered checks in parallel and caches the result briefly
type Checker struct {
	logger   *logrus.Logger
	version  string
	timeout  time.Duration
	cacheTTL time.Duration
	started  time.Time

	mu     sync.Mutex
	checks []Check
	last   *Status
}

// NewChecker creates a checker. Each run is bounded by timeout and reused
// for cacheTTL.
func NewChecker(logger *logrus.Logger, version string, timeout, cacheTTL time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		logger:   logger,
		version:  version,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		started:  time.Now(),
	}
}

// Register adds a check
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
	c.last = nil
}

// Names returns registered check names in sorted order
func (c *Checker) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.checks))
	for _, check := range c.checks {
		names = append(names, check.Name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check, or returns the cached status if still fresh.
func (c *Checker) Run(ctx context.Context) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && c.cacheTTL > 0 && time.Since(c.last.Timestamp) < c.cacheTTL {
		return c.copyStatus(c.last)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make(chan ComponentHealth, len(c.checks))
	var wg sync.WaitGroup
	for _, check := range c.checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()
			results <- runCheck(ctx, check)
		}(check)
	}
	wg.Wait()
	close(results)

	status := &Status{
		Overall:    StateHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(c.checks)),
	}
	var unhealthy []string
	for result := range results {
		status.Components[result.Name] = result
		if result.Status != StateHealthy {
			status.Overall = StateUnhealthy
			unhealthy = append(unhealthy, result.Name)
		}
	}

	if len(unhealthy) > 0 {
		sort.Strings(unhealthy)
		c.logger.WithField("unhealthy_components", unhealthy).Warn("Health check completed with issues")
	} else {
		c.logger.Debug("Health check completed successfully")
	}

	c.last = status
	return c.copyStatus(status)
}

func (c *Checker) copyStatus(s *Status) Status {
	out := *s
	out.Components = make(map[string]ComponentHealth, len(s.Components))
	for k, v := range s.Components {
		out.Components[k] = v
	}
	return out
}

func runCheck(ctx context.Context, check Check) ComponentHealth {
	start := time.Now()
	err := check.Probe(ctx)
	result := ComponentHealth{
		Name:        check.Name,
		Status:      StateHealthy,
		Message:     "ok",
		LastChecked: time.Now(),
		Duration:    time.Since(start),
	}
	if err != nil {
		result.Status = StateUnhealthy
		result.Message = "check failed"
		result.Error = err.Error()
	}
	return result
}
