package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/trainmesh/core"
)

// CountingRunner is a core.JobRunner double that records how many jobs run
// at once. Each job holds its slot for Delay (or until ctx is done).
type CountingRunner struct {
	Delay time.Duration
	// Result optionally decides the outcome; defaults to success.
	Result func(spec core.JobSpec) core.JobResult
	// Started, when set, receives the name of every job as it starts.
	Started chan<- string

	mu        sync.Mutex
	active    int
	maxActive int
	order     []string
}

// Run implements core.JobRunner.
func (c *CountingRunner) Run(ctx context.Context, spec core.JobSpec) core.JobResult {
	start := time.Now()
	c.mu.Lock()
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	c.order = append(c.order, spec.Name)
	c.mu.Unlock()

	if c.Started != nil {
		c.Started <- spec.Name
	}

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()

	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return core.CancelledResult(spec.Name, time.Since(start))
	case <-t.C:
	}

	if c.Result != nil {
		return c.Result(spec)
	}
	return core.JobResult{Name: spec.Name, Success: true, Duration: time.Since(start)}
}

// MaxActive returns the peak number of concurrently running jobs.
func (c *CountingRunner) MaxActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

// Active returns the number of jobs currently running.
func (c *CountingRunner) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Order returns job names in the order they started.
func (c *CountingRunner) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.order...)
}
