package scheduler

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/klauspost/cpuid/v2"

	"github.com/hupe1980/trainmesh/core"
)

// AvailableCores returns the number of logical cores reported by cpuid,
// falling back to runtime.NumCPU when detection fails.
func AvailableCores() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// DefaultWorkers returns the available core count clamped to [1, jobs].
func DefaultWorkers(jobs int) int {
	return Clamp(0, jobs)
}

// Clamp normalizes a requested worker count: values <= 0 select the core
// count, and the result is clamped to [1, jobs].
func Clamp(requested, jobs int) int {
	n := requested
	if n <= 0 {
		n = AvailableCores()
	}
	if jobs > 0 && n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Pool is a bounded worker pool. Each slot runs exactly one job
// synchronously before it becomes free again.
type Pool struct {
	workers int
	active  atomic.Int64
}

// New creates a pool with the given number of worker slots (minimum 1).
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the slot count.
func (p *Pool) Workers() int { return p.workers }

// Active returns how many jobs currently hold a slot.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Dispatch runs fn for every spec with at most Workers() invocations in
// flight. A slot is acquired before a job starts, in submission order, so
// no later job overtakes an earlier one. Dispatch blocks until every started
// job has returned. Once ctx is done no further job is started; the specs
// that were never dispatched are returned in submission order.
func (p *Pool) Dispatch(ctx context.Context, specs []core.JobSpec, fn func(ctx context.Context, spec core.JobSpec)) []core.JobSpec {
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, spec := range specs {
		// Prefer stopping over acquiring when both are ready.
		if ctx.Err() != nil {
			wg.Wait()
			return specs[i:]
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return specs[i:]
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			wg.Wait()
			return specs[i:]
		}

		p.active.Add(1)
		wg.Add(1)
		go func(spec core.JobSpec) {
			defer wg.Done()
			defer func() {
				p.active.Add(-1)
				<-sem
			}()
			fn(ctx, spec)
		}(spec)
	}

	wg.Wait()
	return nil
}
