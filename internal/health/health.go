// Package health supervises long-running components. Unhealthy
// components are restarted with backoff; a component that cannot be
// revived is marked degraded while the rest of the service keeps
// running.
package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
)

// Component is a restartable service the supervisor watches.
type Component interface {
	Name() string
	Healthy() error
	Restart(ctx context.Context) error
}

// Supervisor periodically checks registered components and restarts the
// ones that report errors.
type Supervisor struct {
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	backoffStep time.Duration

	mu         sync.Mutex
	components []Component
	degraded   map[string]string
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewSupervisor constructs a supervisor from workflow configuration.
func NewSupervisor(cfg *config.Config, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger:      logging.NewComponentLogger(logger, "health"),
		interval:    time.Duration(cfg.Workflow.HealthCheckInterval) * time.Second,
		maxAttempts: cfg.Workflow.RestartMaxAttempts,
		backoffStep: time.Duration(cfg.Workflow.RestartBackoffSeconds) * time.Second,
		degraded:    make(map[string]string),
	}
}

// Register adds a component to the watch list. Must be called before Start.
func (s *Supervisor) Register(c Component) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.components = append(s.components, c)
	s.mu.Unlock()
}

// Start begins periodic health checks.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("health supervisor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop halts health checking and waits for the loop to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Degraded returns the names of components that could not be revived,
// with the last error observed for each.
func (s *Supervisor) Degraded() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.degraded))
	for name, detail := range s.degraded {
		out[name] = detail
	}
	return out
}

// DegradedNames returns a sorted list of degraded component names.
func (s *Supervisor) DegradedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.degraded))
	for name := range s.degraded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckNow runs a single health pass. The periodic loop uses this too.
func (s *Supervisor) CheckNow(ctx context.Context) {
	s.mu.Lock()
	components := make([]Component, len(s.components))
	copy(components, s.components)
	s.mu.Unlock()

	for _, c := range components {
		if ctx.Err() != nil {
			return
		}
		s.checkComponent(ctx, c)
	}
}

func (s *Supervisor) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

func (s *Supervisor) checkComponent(ctx context.Context, c Component) {
	err := c.Healthy()
	if err == nil {
		s.clearDegraded(c.Name())
		return
	}

	logging.WarnWithContext(s.logger, "component unhealthy, attempting restart", "component_unhealthy",
		logging.String("component_name", c.Name()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "automatic restart in progress"))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if restartErr := c.Restart(ctx); restartErr == nil {
			if healthErr := c.Healthy(); healthErr == nil {
				s.logger.Info("component restarted",
					logging.String("component_name", c.Name()),
					logging.Int("attempt", attempt))
				s.clearDegraded(c.Name())
				return
			}
		} else {
			err = restartErr
		}
		if attempt == s.maxAttempts {
			break
		}
		if !s.sleep(ctx, time.Duration(attempt)*s.backoffStep) {
			return
		}
	}

	s.mu.Lock()
	s.degraded[c.Name()] = err.Error()
	s.mu.Unlock()
	logging.ErrorWithContext(s.logger, "component could not be restarted, marking degraded", "component_degraded",
		logging.String("component_name", c.Name()),
		logging.Int("attempts", s.maxAttempts),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "fix the underlying problem; the next health pass retries automatically"))
}

func (s *Supervisor) clearDegraded(name string) {
	s.mu.Lock()
	if _, was := s.degraded[name]; was {
		delete(s.degraded, name)
		s.logger.Info("component recovered", logging.String("component_name", name))
	}
	s.mu.Unlock()
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
