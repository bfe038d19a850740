// Package trainmesh provides a high-level façade over the orchestrator and
// its collaborators (job builder, process runner, reporter, artifact store
// and logging) so a complete experiment can be planned and run from a single
// config.Config. Most applications interact with this package by:
//  1. Loading a config.Config (environment plus flags)
//  2. Creating a TrainMesh via New(), which expands the config into JobSpecs
//  3. Calling Run, and Cancel from a signal handler
//
// The façade delegates orchestration to orchestrator.Orchestrator while keeping
// setup concise. Defaults write reports and logs below the configured base
// directory and publish nothing.
package trainmesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hupe1980/trainmesh/artifact"
	"github.com/hupe1980/trainmesh/config"
	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/jobspec"
	"github.com/hupe1980/trainmesh/logging"
	"github.com/hupe1980/trainmesh/orchestrator"
	"github.com/hupe1980/trainmesh/process"
	"github.com/hupe1980/trainmesh/report"
	"github.com/hupe1980/trainmesh/status"
)

// MaxExitCode caps the failed-job exit status below the shell's reserved range.
const MaxExitCode = 125

// Options configures the TrainMesh instance beyond what config.Config holds.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Out receives the plan and the run summary.
	Out io.Writer
	// Runner overrides the process runner.
	Runner core.JobRunner
	// ArtifactStore overrides the backend selected by the config.
	ArtifactStore core.ArtifactStore
	// ReportTool overrides the report tool command from the config.
	ReportTool core.ReportTool
}

// TrainMesh is one planned experiment.
type TrainMesh struct {
	cfg    config.Config
	opts   Options
	preset *jobspec.Preset
	params jobspec.Params
	specs  []core.JobSpec
	orch   *orchestrator.Orchestrator
}

// New validates cfg, expands it into JobSpecs and wires the orchestrator.
// Configuration problems are returned as *core.ConfigurationError.
func New(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*TrainMesh, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Out:    os.Stdout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &TrainMesh{cfg: cfg, opts: opts}
	seeds, err := m.resolveSeeds()
	if err != nil {
		return nil, err
	}

	m.specs, err = jobspec.NewBuilder(cfg.BaseDir, cfg.TrainerArgv()...).Build(cfg.Workload, seeds, m.params)
	if err != nil {
		return nil, err
	}

	store := opts.ArtifactStore
	if store == nil {
		if store, err = newArtifactStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	tool := opts.ReportTool
	if tool == nil {
		if argv := cfg.ReportToolArgv(); len(argv) > 0 {
			tool = process.NewTool(argv...)
		}
	}

	reporter := report.New(cfg.BaseDir, func(o *report.Options) {
		o.Format = cfg.ReportFormat
		o.ArtifactPattern = cfg.ArtifactPattern
		o.Logger = opts.Logger
	})

	m.orch = orchestrator.New(cfg.BaseDir, func(o *orchestrator.Options) {
		o.MaxWorkers = cfg.MaxWorkers
		o.GracePeriod = cfg.GracePeriod
		o.Runner = opts.Runner
		o.Reporter = reporter
		o.MonitorInterval = cfg.MonitorInterval
		o.ArtifactStore = store
		o.ReportTool = tool
		o.Out = opts.Out
		o.Logger = opts.Logger
	})

	return m, nil
}

// resolveSeeds picks explicit seeds over the preset. Preset parameters are
// merged over the user's when the preset supplies the seeds.
func (m *TrainMesh) resolveSeeds() ([]int, error) {
	if strings.TrimSpace(m.cfg.Seeds) != "" {
		m.params = m.cfg.Params
		return jobspec.ParseSeeds(m.cfg.Seeds)
	}
	presets, err := jobspec.LoadPresets(m.cfg.PresetFile)
	if err != nil {
		return nil, err
	}
	p, err := presets.Get(m.cfg.Preset)
	if err != nil {
		return nil, err
	}
	m.preset = &p
	m.params = m.cfg.Params.Merge(p.Params)
	return p.Seeds, nil
}

func newArtifactStore(ctx context.Context, cfg config.Config) (core.ArtifactStore, error) {
	switch strings.ToLower(cfg.ArtifactBackend) {
	case "memory":
		return artifact.NewInMemoryStore(), nil
	case "minio":
		return artifact.NewMinIOStore(ctx, artifact.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Prefix:    cfg.MinIO.Prefix,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	default:
		return nil, nil
	}
}

// Specs returns the planned jobs in dispatch order.
func (m *TrainMesh) Specs() []core.JobSpec { return m.specs }

// Params returns the effective training overrides.
func (m *TrainMesh) Params() jobspec.Params { return m.params }

// Describe prints the plan shown before confirmation.
func (m *TrainMesh) Describe(w io.Writer) {
	if m.preset != nil {
		fmt.Fprintf(w, "Preset %s: %s\n", m.preset.Name, m.preset.Description)
	}
	seeds := make([]int, len(m.specs))
	for i, s := range m.specs {
		seeds[i] = s.Seed
	}
	fmt.Fprintf(w, "Seeds: %v\n", seeds)
	fmt.Fprintf(w, "Environment: %s\n", m.cfg.Workload)
	fmt.Fprintf(w, "Experiments: %d\n", len(m.specs))
	if args := m.params.Args(); len(args) > 0 {
		fmt.Fprintf(w, "Training parameters: %s\n", strings.Join(args, " "))
	}
	fmt.Fprintf(w, "Base directory: %s\n", m.cfg.BaseDir)
}

// Run executes the experiment. See orchestrator.Orchestrator.Run.
func (m *TrainMesh) Run(ctx context.Context) (core.ExperimentReport, error) {
	return m.orch.Run(ctx, m.cfg.Workload, m.specs)
}

// Cancel stops the experiment; safe from a signal handler.
func (m *TrainMesh) Cancel() { m.orch.Cancel() }

// StatusHandler serves the live registry and recorded results.
func (m *TrainMesh) StatusHandler() http.Handler { return status.NewHandler(m.orch) }

// ExitCode maps a run outcome to the process exit status: 0 when every job
// succeeded, the failed-job count (capped at MaxExitCode) when jobs failed,
// 1 for a cancelled run without counted failures and 2 for configuration
// errors. Cancelled jobs are not counted as failures.
func ExitCode(rep core.ExperimentReport, err error) int {
	if err != nil && !errors.Is(err, core.ErrCancelled) {
		if core.IsConfigurationError(err) {
			return 2
		}
		return 1
	}
	failed := 0
	for _, r := range rep.Results {
		if !r.Success && !r.Cancelled() {
			failed++
		}
	}
	switch {
	case failed > MaxExitCode:
		return MaxExitCode
	case failed > 0:
		return failed
	case rep.Cancelled || err != nil:
		return 1
	default:
		return 0
	}
}
