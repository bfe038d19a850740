package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sample is one host utilization reading.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Sampler reads host utilization.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// SamplerFunc adapts a plain function to Sampler.
type SamplerFunc func(ctx context.Context) (Sample, error)

// Sample implements Sampler.
func (f SamplerFunc) Sample(ctx context.Context) (Sample, error) { return f(ctx) }

// HostSampler samples system-wide utilization through gopsutil.
type HostSampler struct {
	// CPUWindow is the measurement window for CPU utilization.
	CPUWindow time.Duration
}

// NewHostSampler returns a HostSampler measuring CPU over one second.
func NewHostSampler() *HostSampler {
	return &HostSampler{CPUWindow: time.Second}
}

// Sample implements Sampler.
func (h *HostSampler) Sample(ctx context.Context) (Sample, error) {
	pct, err := cpu.PercentWithContext(ctx, h.CPUWindow, false)
	if err != nil {
		return Sample{}, fmt.Errorf("cpu: %w", err)
	}
	if len(pct) == 0 {
		return Sample{}, errors.New("cpu: no reading")
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("memory: %w", err)
	}
	return Sample{CPUPercent: pct[0], MemoryPercent: vm.UsedPercent}, nil
}

// HostInfo describes the host CPU for the start-of-run log line.
type HostInfo struct {
	Brand         string
	Vendor        string
	PhysicalCores int
	LogicalCores  int
}

// DetectHost reads CPU identification through cpuid.
func DetectHost() HostInfo {
	return HostInfo{
		Brand:         cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
}
