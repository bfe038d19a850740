package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/logging"
)

// DefaultGracePeriod is how long a cancelled job may take to exit after
// SIGTERM before it is killed.
const DefaultGracePeriod = 10 * time.Second

const tracerName = "github.com/hupe1980/trainmesh/process"

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// GracePeriod between the termination request and the force kill.
	GracePeriod time.Duration
	// Env is the child environment. Nil inherits the current environment.
	Env []string
	// OnStart is invoked once the process has been spawned.
	OnStart func(core.RunningJob)
	// Logger receives job lifecycle events.
	Logger logging.Logger
	// Tracer creates one span per job. Defaults to the global provider.
	Tracer trace.Tracer
}

// Runner executes JobSpecs as external processes. It is safe for concurrent
// use; each Run call exclusively owns the process it spawns.
type Runner struct {
	grace   time.Duration
	env     []string
	onStart func(core.RunningJob)
	logger  logging.Logger
	tracer  trace.Tracer
}

// Interface compliance (compile-time assertion)
var _ core.JobRunner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		GracePeriod: DefaultGracePeriod,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Runner{
		grace:   opts.GracePeriod,
		env:     opts.Env,
		onStart: opts.OnStart,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
	}
}

// Run spawns the trainer for spec and blocks until it exits. It never
// returns without a result.
func (r *Runner) Run(ctx context.Context, spec core.JobSpec) (result core.JobResult) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "trainmesh.job", trace.WithAttributes(
		attribute.String("job.name", spec.Name),
		attribute.String("job.workload", spec.WorkloadID),
		attribute.Int("job.seed", spec.Seed),
	))
	defer func() {
		span.SetAttributes(attribute.Int("job.exit_code", result.ExitCode), attribute.Bool("job.success", result.Success))
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
		span.End()
		logging.LogJobResult(r.logger, result.Name, result.ExitCode, result.Duration, result.Success, result.Error)
	}()

	if ctx.Err() != nil {
		return core.CancelledResult(spec.Name, 0)
	}
	if len(spec.Argv) == 0 {
		return spawnFailure(spec, start, errors.New("empty argv"))
	}
	if err := os.MkdirAll(spec.WorkingDir, 0o755); err != nil {
		return spawnFailure(spec, start, err)
	}

	logPath := filepath.Join(spec.WorkingDir, core.LogFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return spawnFailure(spec, start, err)
	}
	defer func() {
		_ = logFile.Sync()
		_ = logFile.Close()
	}()

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = r.env
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = r.grace

	if err := cmd.Start(); err != nil {
		return spawnFailure(spec, start, err)
	}

	r.logger.Info("Job started", "job", spec.Name, "pid", cmd.Process.Pid, "log_file", logPath)
	if r.onStart != nil {
		r.onStart(core.RunningJob{Spec: spec, PID: cmd.Process.Pid, StartTime: start, LogFile: logPath})
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case waitErr == nil:
		return core.JobResult{Name: spec.Name, ExitCode: exitCode, Duration: elapsed, Success: true}
	case interrupted(ctx.Err(), waitErr, cmd.ProcessState):
		res := core.CancelledResult(spec.Name, elapsed)
		res.ExitCode = exitCode
		return res
	default:
		if exitCode == 0 {
			// Wait failed for a reason other than the exit status.
			exitCode = -1
		}
		return core.JobResult{
			Name:     spec.Name,
			ExitCode: exitCode,
			Duration: elapsed,
			Error:    (&core.JobFailure{Job: spec.Name, ExitCode: exitCode}).Error(),
		}
	}
}

func spawnFailure(spec core.JobSpec, start time.Time, err error) core.JobResult {
	return core.JobResult{
		Name:     spec.Name,
		ExitCode: -1,
		Duration: time.Since(start),
		Error:    (&core.SpawnError{Job: spec.Name, Err: err}).Error(),
	}
}

// interrupted reports whether the process ended because of cancellation
// rather than exiting on its own: either Wait surfaced the context error
// (the trainer handled SIGTERM and exited cleanly) or a signal killed it.
func interrupted(ctxErr, waitErr error, state *os.ProcessState) bool {
	if ctxErr == nil {
		return false
	}
	if errors.Is(waitErr, ctxErr) {
		return true
	}
	if state == nil {
		return false
	}
	if runtime.GOOS == "windows" {
		// Kill leaves no signal trace; exit status 1 is all Wait reports.
		return true
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}

// terminate asks the process to exit, falling back to a kill where
// SIGTERM is not deliverable.
func terminate(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return p.Kill()
	}
	return nil
}
