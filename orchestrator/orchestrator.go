package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/trainmesh/artifact"
	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/jobspec"
	"github.com/hupe1980/trainmesh/logging"
	"github.com/hupe1980/trainmesh/monitor"
	"github.com/hupe1980/trainmesh/process"
	"github.com/hupe1980/trainmesh/report"
	"github.com/hupe1980/trainmesh/results"
	"github.com/hupe1980/trainmesh/scheduler"
)

const tracerName = "github.com/hupe1980/trainmesh/orchestrator"

// ErrAlreadyRunning is returned when Run is called while a run is active.
var ErrAlreadyRunning = errors.New("orchestrator: experiment already running")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxWorkers bounds concurrently running jobs; <= 0 uses the core count.
	MaxWorkers int
	// GracePeriod between SIGTERM and kill for the default process runner.
	GracePeriod time.Duration
	// Runner executes jobs. Defaults to a process.Runner whose start hook
	// feeds the live registry.
	Runner core.JobRunner
	// ResultStore receives every JobResult. It is reset when a run begins.
	ResultStore core.ResultStore
	// Reporter aggregates and persists the report. Defaults to a JSON
	// reporter on the base directory.
	Reporter *report.Reporter
	// MonitorInterval between resource samples.
	MonitorInterval time.Duration
	// Sampler reads host utilization. Defaults to the gopsutil sampler.
	Sampler monitor.Sampler
	// ArtifactStore receives collected artifacts. Nil disables publishing.
	ArtifactStore core.ArtifactStore
	// ReportTool runs after a completed (not cancelled) experiment.
	ReportTool core.ReportTool
	// Out receives the human-readable summary.
	Out io.Writer
	// Logging services.
	Logger logging.Logger
	// Tracer emits the experiment span.
	Tracer trace.Tracer
}

// Orchestrator runs experiments. Public methods are safe for concurrent use.
type Orchestrator struct {
	maxWorkers      int
	runner          core.JobRunner
	store           core.ResultStore
	reporter        *report.Reporter
	monitorInterval time.Duration
	sampler         monitor.Sampler
	artifactStore   core.ArtifactStore
	reportTool      core.ReportTool
	out             io.Writer
	logger          logging.Logger
	tracer          trace.Tracer

	mu       sync.RWMutex
	registry map[string]core.RunningJob
	cancel   context.CancelFunc
	running  bool
	stopping bool // current run was cancelled
	pending  bool // Cancel arrived before the first run
	used     bool
	start    time.Time
}

// New constructs an Orchestrator writing into baseDir.
func New(baseDir string, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		GracePeriod:     process.DefaultGracePeriod,
		ResultStore:     results.NewInMemoryStore(),
		MonitorInterval: monitor.DefaultInterval,
		Out:             os.Stdout,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Reporter == nil {
		opts.Reporter = report.New(baseDir, func(ro *report.Options) { ro.Logger = opts.Logger })
	}

	o := &Orchestrator{
		maxWorkers:      opts.MaxWorkers,
		runner:          opts.Runner,
		store:           opts.ResultStore,
		reporter:        opts.Reporter,
		monitorInterval: opts.MonitorInterval,
		sampler:         opts.Sampler,
		artifactStore:   opts.ArtifactStore,
		reportTool:      opts.ReportTool,
		out:             opts.Out,
		logger:          opts.Logger,
		tracer:          opts.Tracer,
		registry:        make(map[string]core.RunningJob),
	}

	if o.runner == nil {
		o.runner = process.New(func(po *process.Options) {
			po.GracePeriod = opts.GracePeriod
			po.Logger = opts.Logger
			po.OnStart = o.markStarted
		})
	}

	return o
}

// Run dispatches specs and blocks until every job has a result. The
// returned error wraps core.ErrCancelled when the run was interrupted; the
// report is complete in that case too.
func (o *Orchestrator) Run(ctx context.Context, workload string, specs []core.JobSpec) (core.ExperimentReport, error) {
	if err := validateSpecs(specs); err != nil {
		return core.ExperimentReport{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := o.begin(cancel); err != nil {
		return core.ExperimentReport{}, err
	}
	defer o.finish()

	runID := core.NewRunID()
	start := o.startTime()
	defer logging.StartTimer(o.logger, "experiment", "run_id", runID)()
	workers := scheduler.Clamp(o.maxWorkers, len(specs))
	baseDir := o.reporter.BaseDir()

	runCtx, span := o.tracer.Start(runCtx, "trainmesh.experiment", trace.WithAttributes(
		attribute.String("experiment.run_id", runID),
		attribute.String("experiment.workload", workload),
		attribute.Int("experiment.jobs", len(specs)),
		attribute.Int("experiment.workers", workers),
	))
	defer span.End()

	if err := jobspec.EnsureBaseDir(baseDir); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return core.ExperimentReport{}, err
	}

	o.logger.Info("Starting experiment",
		"run_id", runID,
		"workload", workload,
		"jobs", len(specs),
		"workers", workers,
		"base_dir", baseDir,
	)

	pool := scheduler.New(workers)
	mon := monitor.New(pool.Active, len(specs), func(mo *monitor.Options) {
		mo.Interval = o.monitorInterval
		mo.Sampler = o.sampler
		mo.Logger = o.logger
	})
	done := make(chan struct{})
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(runCtx, done)
	}()

	left := pool.Dispatch(runCtx, specs, o.runJob)
	close(done)
	<-monDone

	if len(left) > 0 {
		o.logger.Warn("Dispatch stopped", "undispatched", len(left))
	}

	// Every spec without a result is recorded as cancelled.
	all := make([]core.JobResult, 0, len(specs))
	cancelled := false
	for _, spec := range specs {
		res, ok := o.store.Get(spec.Name)
		if !ok {
			res = core.CancelledResult(spec.Name, 0)
			o.record(res)
		}
		if res.Cancelled() {
			cancelled = true
		}
		all = append(all, res)
	}

	rep := o.reporter.Generate(report.Meta{
		RunID:     runID,
		Workload:  workload,
		Start:     start,
		End:       time.Now(),
		Cancelled: cancelled,
	}, all)
	rep.Artifacts, rep.MissingArtifacts = o.reporter.CollectArtifacts(specs, all)

	if _, err := o.reporter.Persist(rep); err != nil {
		o.logger.Error("Failed to save report", "error", err)
	}

	if !cancelled {
		o.publish(ctx, runID, rep.Artifacts)
	}

	if err := report.WriteSummary(o.out, rep); err != nil {
		o.logger.Warn("Failed to write summary", "error", err)
	}

	if !cancelled && o.reportTool != nil {
		if err := o.reportTool.Analyze(ctx, baseDir); err != nil {
			o.logger.Warn("Report tool failed", "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("experiment.successful", rep.Successful),
		attribute.Int("experiment.failed", rep.Failed),
		attribute.Bool("experiment.cancelled", cancelled),
	)

	o.logger.Info("Experiment finished",
		"run_id", runID,
		"successful", rep.Successful,
		"failed", rep.Failed,
		"cancelled", cancelled,
		"wall_time", rep.TotalWallTime,
	)

	if cancelled {
		span.SetStatus(codes.Error, core.CancelledError)
		return rep, fmt.Errorf("experiment %s: %w", runID, core.ErrCancelled)
	}
	return rep, nil
}

// Cancel stops dispatch and terminates running jobs of the current run. It
// is idempotent. Called before the first Run, that run starts no job; called
// between runs it has no effect.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		if !o.used {
			o.pending = true
		}
		return
	}
	if o.stopping {
		return
	}
	o.stopping = true
	o.logger.Warn("Cancellation requested, stopping all jobs", "running", len(o.registry))
	o.cancel()
}

// Active returns a snapshot of the running jobs sorted by name.
func (o *Orchestrator) Active() []core.RunningJob {
	o.mu.RLock()
	defer o.mu.RUnlock()
	jobs := make([]core.RunningJob, 0, len(o.registry))
	for _, j := range o.registry {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Spec.Name < jobs[k].Spec.Name })
	return jobs
}

// Results returns a snapshot of the results recorded so far.
func (o *Orchestrator) Results() []core.JobResult {
	return o.store.List()
}

func (o *Orchestrator) begin(cancel context.CancelFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrAlreadyRunning
	}
	o.running = true
	o.used = true
	o.cancel = cancel
	o.start = time.Now()
	o.registry = make(map[string]core.RunningJob)
	o.store.Reset()
	o.stopping = o.pending
	o.pending = false
	if o.stopping {
		cancel()
	}
	return nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.cancel = nil
}

func (o *Orchestrator) startTime() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.start
}

func (o *Orchestrator) runJob(ctx context.Context, spec core.JobSpec) {
	o.mu.Lock()
	o.registry[spec.Name] = core.RunningJob{Spec: spec, StartTime: time.Now()}
	o.mu.Unlock()

	res := o.runner.Run(ctx, spec)

	o.mu.Lock()
	delete(o.registry, spec.Name)
	o.mu.Unlock()

	o.record(res)
}

// markStarted replaces the dispatch-time registry entry with the spawned
// process details.
func (o *Orchestrator) markStarted(rj core.RunningJob) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.registry[rj.Spec.Name]; ok {
		o.registry[rj.Spec.Name] = rj
	}
}

func (o *Orchestrator) record(res core.JobResult) {
	if err := o.store.Record(res); err != nil {
		o.logger.Error("Failed to record result", "job", res.Name, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, runID string, summaries []core.ArtifactSummary) {
	if o.artifactStore == nil || len(summaries) == 0 {
		return
	}
	n, err := artifact.Publish(ctx, o.artifactStore, runID, summaries)
	if err != nil {
		o.logger.Warn("Artifact publishing incomplete", "published", n, "error", err)
		return
	}
	o.logger.Info("Artifacts published", "run_id", runID, "files", n)
}

func validateSpecs(specs []core.JobSpec) error {
	if len(specs) == 0 {
		return core.NewConfigurationError("seeds", "no jobs to run")
	}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return core.NewConfigurationError("name", "job without a name")
		}
		if _, dup := seen[s.Name]; dup {
			return core.NewConfigurationError("name", "job name collision %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
