// Command trainmesh runs one training workload across many seeds in
// parallel, then writes an experiment report and a summary.
//
//	trainmesh -env Hopper-v2 [-preset standard | -seeds 1,2,3] [-workers N] [-logdir DIR]
//	          [-popsize N] [-rollout_size N] [-num_frames N] [-use_cuda]
//	          [-use_tensorboard [-tensorboard_dir DIR] [-log_weights] [-log_freq N]]
//	          [-list-presets] [-yes]
//
// Exit status: 0 when every job succeeded, the number of failed jobs (at
// most 125) when some failed, 1 for a cancelled run and 2 for usage or
// configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/trainmesh"
	"github.com/hupe1980/trainmesh/config"
	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/internal/prompt"
	"github.com/hupe1980/trainmesh/jobspec"
	"github.com/hupe1980/trainmesh/logging"
	"github.com/hupe1980/trainmesh/observability"
	"github.com/hupe1980/trainmesh/status"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	fs := flag.NewFlagSet("trainmesh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)
	listPresets := fs.Bool("list-presets", false, "list the available presets and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *listPresets {
		presets, err := jobspec.LoadPresets(cfg.PresetFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		presets.Describe(stdout)
		return 0
	}

	if cfg.Workload == "" {
		fmt.Fprintln(stderr, "trainmesh: -env is required for training")
		fs.Usage()
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    stderr,
		Component: "trainmesh",
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	_, shutdown, err := observability.InitTracing(ctx, func(o *observability.TracingOptions) {
		o.Exporter = cfg.TraceExporter
		o.Writer = stderr
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(flushCtx)
	}()

	tm, err := trainmesh.New(ctx, cfg, func(o *trainmesh.Options) {
		o.Logger = logger
		o.Out = stdout
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return trainmesh.ExitCode(core.ExperimentReport{}, err)
	}

	tm.Describe(stdout)
	ok, err := prompt.Resolve(cfg.Yes, stdin, stdout).Confirm("Start parallel training?")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stdout, "Aborted")
		return 0
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchSignals(ctx, sigCh, func() { signal.Stop(sigCh) }, func() {
		logger.Warn("Interrupt received, stopping all experiments")
		tm.Cancel()
	})

	if cfg.StatusAddr != "" {
		go func() {
			if err := status.Serve(ctx, cfg.StatusAddr, tm.StatusHandler(), logger); err != nil {
				logger.Error("Status endpoint failed", "error", err)
			}
		}()
	}

	rep, err := tm.Run(ctx)
	if err != nil && !errors.Is(err, core.ErrCancelled) {
		fmt.Fprintln(stderr, err)
	}
	return trainmesh.ExitCode(rep, err)
}

// watchSignals calls cancel on the first signal and then releases the
// notification so a second interrupt terminates the process immediately.
func watchSignals(ctx context.Context, sigCh <-chan os.Signal, release, cancel func()) {
	select {
	case <-sigCh:
		release()
		cancel()
	case <-ctx.Done():
	}
}
