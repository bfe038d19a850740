package jobspec

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/trainmesh/core"
)

// Builder expands a (workload, seeds, params) tuple into JobSpecs. It is
// pure: no directory is created until a job is dispatched.
type Builder struct {
	// BaseDir is the experiment root; each job gets BaseDir/<name>.
	BaseDir string
	// Executable is the trainer command prefix, e.g. ["python3", "run_pderl.py"].
	Executable []string
}

// NewBuilder creates a Builder for the given base directory and trainer command.
func NewBuilder(baseDir string, executable ...string) *Builder {
	return &Builder{BaseDir: baseDir, Executable: executable}
}

// Build returns one JobSpec per seed, in input order.
func (b *Builder) Build(workload string, seeds []int, params Params) ([]core.JobSpec, error) {
	workload = strings.TrimSpace(workload)
	if workload == "" {
		return nil, core.NewConfigurationError("workload", "required")
	}
	if strings.ContainsAny(workload, `/\`) {
		return nil, core.NewConfigurationError("workload", "must not contain path separators: %q", workload)
	}
	if len(seeds) == 0 {
		return nil, core.NewConfigurationError("seeds", "at least one seed is required")
	}
	if len(b.Executable) == 0 || strings.TrimSpace(b.Executable[0]) == "" {
		return nil, core.NewConfigurationError("executable", "trainer command is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(seeds))
	names := make(map[string]struct{}, len(seeds))
	extra := params.Args()
	specs := make([]core.JobSpec, 0, len(seeds))

	for _, seed := range seeds {
		if _, dup := seen[seed]; dup {
			return nil, core.NewConfigurationError("seeds", "duplicate seed %d", seed)
		}
		seen[seed] = struct{}{}

		name := core.JobName(workload, seed)
		if _, dup := names[name]; dup {
			return nil, core.NewConfigurationError("seeds", "job name collision %q", name)
		}
		names[name] = struct{}{}

		dir := filepath.Join(b.BaseDir, name)
		argv := make([]string, 0, len(b.Executable)+6+len(extra))
		argv = append(argv, b.Executable...)
		argv = append(argv, "-env", workload, "-seed", strconv.Itoa(seed), "-logdir", dir)
		argv = append(argv, extra...)

		specs = append(specs, core.JobSpec{
			Name:        name,
			WorkloadID:  workload,
			Seed:        seed,
			WorkingDir:  dir,
			Argv:        argv,
			ExtraParams: params.Map(),
		})
	}
	return specs, nil
}

// EnsureBaseDir creates the experiment root directory.
func EnsureBaseDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return core.NewConfigurationError("base_dir", "required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.NewConfigurationError("base_dir", "cannot create %s: %v", dir, err)
	}
	return nil
}

// ParseSeeds parses a comma or whitespace separated seed list.
func ParseSeeds(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, core.NewConfigurationError("seeds", "empty seed list")
	}
	seeds := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, core.NewConfigurationError("seeds", "invalid seed %q", f)
		}
		seeds = append(seeds, n)
	}
	return seeds, nil
}
