package testutil

import (
	"path/filepath"
	"strconv"

	"github.com/hupe1980/trainmesh/core"
)

// SpecBuilder helps construct JobSpecs with fluent chaining for tests.
// Example:
//
//	spec := NewSpecBuilder("Hopper", 1).Dir(t.TempDir()).Command(TrainerCommand()...).Flag("-exit", "3").Build()
type SpecBuilder struct {
	workload string
	seed     int
	baseDir  string
	command  []string
	flags    []string
}

// NewSpecBuilder creates a builder for the given workload and seed.
func NewSpecBuilder(workload string, seed int) *SpecBuilder {
	return &SpecBuilder{workload: workload, seed: seed, baseDir: "."}
}

// Dir sets the experiment base directory (chainable).
func (b *SpecBuilder) Dir(base string) *SpecBuilder {
	b.baseDir = base
	return b
}

// Command sets the trainer command prefix (chainable).
func (b *SpecBuilder) Command(argv ...string) *SpecBuilder {
	b.command = append([]string{}, argv...)
	return b
}

// Flag appends a pass-through flag with an optional value (chainable).
func (b *SpecBuilder) Flag(name string, value ...string) *SpecBuilder {
	b.flags = append(b.flags, name)
	b.flags = append(b.flags, value...)
	return b
}

// Build returns the JobSpec with the trainer CLI contract applied.
func (b *SpecBuilder) Build() core.JobSpec {
	name := core.JobName(b.workload, b.seed)
	dir := filepath.Join(b.baseDir, name)
	argv := append([]string{}, b.command...)
	argv = append(argv, "-env", b.workload, "-seed", strconv.Itoa(b.seed), "-logdir", dir)
	argv = append(argv, b.flags...)
	return core.JobSpec{Name: name, WorkloadID: b.workload, Seed: b.seed, WorkingDir: dir, Argv: argv}
}
