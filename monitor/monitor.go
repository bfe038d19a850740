package monitor

import (
	"context"
	"time"

	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/logging"
)

// DefaultInterval between two resource samples.
const DefaultInterval = 30 * time.Second

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	Interval time.Duration
	Sampler  Sampler
	Logger   logging.Logger
}

// Monitor samples host resources on a fixed interval.
type Monitor struct {
	interval time.Duration
	sampler  Sampler
	logger   logging.Logger
	active   func() int
	total    int
}

// New creates a Monitor reporting active() running jobs out of total.
func New(active func() int, total int, optFns ...func(o *Options)) *Monitor {
	opts := Options{
		Interval: DefaultInterval,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Sampler == nil {
		opts.Sampler = NewHostSampler()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Monitor{
		interval: opts.Interval,
		sampler:  opts.Sampler,
		logger:   opts.Logger,
		active:   active,
		total:    total,
	}
}

// Run ticks until done is closed or ctx ends. Ticks with no active job are
// skipped. The first sampling error is logged once and turns the monitor
// into a no-op for the rest of the run.
func (m *Monitor) Run(ctx context.Context, done <-chan struct{}) {
	host := DetectHost()
	m.logger.Info("Resource monitor started",
		"interval", m.interval,
		"cpu", host.Brand,
		"physical_cores", host.PhysicalCores,
		"logical_cores", host.LogicalCores,
	)

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-t.C:
			active := m.active()
			if active == 0 {
				continue
			}
			s, err := m.sampler.Sample(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("Resource monitoring disabled", "error", (&core.MonitorError{Err: err}).Error())
				return
			}
			logging.LogResourceSample(m.logger, s.CPUPercent, s.MemoryPercent, active, m.total)
		}
	}
}
