package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trainmesh/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLogger(out *syncBuffer) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Output: out})
}

func TestMonitor_LogsSamples(t *testing.T) {
	out := &syncBuffer{}
	var calls atomic.Int32
	m := New(func() int { return 2 }, 3, func(o *Options) {
		o.Interval = 10 * time.Millisecond
		o.Logger = newLogger(out)
		o.Sampler = SamplerFunc(func(context.Context) (Sample, error) {
			calls.Add(1)
			return Sample{CPUPercent: 42.3, MemoryPercent: 61}, nil
		})
	})

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		m.Run(context.Background(), done)
		close(finished)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	close(done)
	<-finished

	assert.Contains(t, out.String(), "42.3")
	assert.Contains(t, out.String(), "61.0")
}

func TestMonitor_WarnsOnceOnSamplerError(t *testing.T) {
	out := &syncBuffer{}
	var calls atomic.Int32
	m := New(func() int { return 1 }, 1, func(o *Options) {
		o.Interval = 5 * time.Millisecond
		o.Logger = newLogger(out)
		o.Sampler = SamplerFunc(func(context.Context) (Sample, error) {
			calls.Add(1)
			return Sample{}, errors.New("no /proc")
		})
	})

	finished := make(chan struct{})
	go func() {
		m.Run(context.Background(), make(chan struct{}))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after sampler error")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, strings.Count(out.String(), "Resource monitoring disabled"))
}

func TestMonitor_SkipsIdleTicks(t *testing.T) {
	var calls atomic.Int32
	m := New(func() int { return 0 }, 4, func(o *Options) {
		o.Interval = 5 * time.Millisecond
		o.Sampler = SamplerFunc(func(context.Context) (Sample, error) {
			calls.Add(1)
			return Sample{}, nil
		})
	})

	done := make(chan struct{})
	time.AfterFunc(50*time.Millisecond, func() { close(done) })
	m.Run(context.Background(), done)
	assert.Zero(t, calls.Load())
}

func TestMonitor_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(func() int { return 1 }, 1)
	m.Run(ctx, make(chan struct{}))
}

func TestNewDefaults(t *testing.T) {
	m := New(func() int { return 0 }, 0, func(o *Options) { o.Interval = -1; o.Logger = nil })
	assert.Equal(t, DefaultInterval, m.interval)
	assert.IsType(t, &HostSampler{}, m.sampler)
	assert.NotNil(t, m.logger)
}

func TestDetectHost(t *testing.T) {
	h := DetectHost()
	assert.GreaterOrEqual(t, h.LogicalCores, 0)
}
