package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/trainmesh/artifact"
	"github.com/hupe1980/trainmesh/core"
	"github.com/hupe1980/trainmesh/internal/testutil"
	"github.com/hupe1980/trainmesh/jobspec"
	"github.com/hupe1980/trainmesh/report"
)

func TestHelperProcess(t *testing.T) { testutil.RunFakeTrainer() }

type mockReportTool struct{ mock.Mock }

func (m *mockReportTool) Analyze(ctx context.Context, baseDir string) error {
	return m.Called(ctx, baseDir).Error(0)
}

func build(t *testing.T, base string, seeds []int, executable ...string) []core.JobSpec {
	t.Helper()
	if len(executable) == 0 {
		executable = []string{"trainer"}
	}
	specs, err := jobspec.NewBuilder(base, executable...).Build("Hopper", seeds, jobspec.Params{})
	require.NoError(t, err)
	return specs
}

func TestRun_BoundedConcurrency(t *testing.T) {
	base := t.TempDir()
	runner := &testutil.CountingRunner{Delay: 30 * time.Millisecond}
	var out bytes.Buffer
	o := New(base, func(o *Options) {
		o.MaxWorkers = 2
		o.Runner = runner
		o.Out = &out
	})

	rep, err := o.Run(context.Background(), "Hopper", build(t, base, []int{1, 2, 3}))
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 3, rep.Successful)
	assert.Zero(t, rep.Failed)
	assert.True(t, rep.AllSucceeded())
	assert.NotEmpty(t, rep.RunID)
	for _, name := range []string{"Hopper_seed_1", "Hopper_seed_2", "Hopper_seed_3"} {
		assert.Contains(t, rep.Results, name)
	}
	assert.LessOrEqual(t, runner.MaxActive(), 2)
	assert.Len(t, o.Results(), 3)
	assert.Empty(t, o.Active())

	_, err = os.Stat(filepath.Join(base, "experiment_report.json"))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Total experiments: 3")
}

func TestRun_InvalidExecutableIsolated(t *testing.T) {
	testutil.EnableTrainer(t)
	base := t.TempDir()
	specs := build(t, base, []int{1, 2, 3}, testutil.TrainerCommand()...)

	broken := specs[1]
	argv := append([]string{filepath.Join(base, "no-such-trainer")}, broken.Argv[len(testutil.TrainerCommand()):]...)
	broken.Argv = argv
	specs[1] = broken

	o := New(base, func(o *Options) {
		o.MaxWorkers = 3
		o.Out = &bytes.Buffer{}
	})
	rep, err := o.Run(context.Background(), "Hopper", specs)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Successful)
	assert.Equal(t, 1, rep.Failed)

	bad := rep.Results["Hopper_seed_2"]
	assert.False(t, bad.Success)
	assert.Equal(t, -1, bad.ExitCode)
	assert.Contains(t, bad.Error, "spawn failed")
	assert.True(t, rep.Results["Hopper_seed_1"].Success)
	assert.True(t, rep.Results["Hopper_seed_3"].Success)
}

func TestRun_NonZeroExit(t *testing.T) {
	testutil.EnableTrainer(t)
	base := t.TempDir()
	cmd := append(testutil.TrainerCommand(), "-fail_seed", "2")
	specs := build(t, base, []int{1, 2}, cmd...)

	rep, err := New(base, func(o *Options) { o.Out = &bytes.Buffer{} }).Run(context.Background(), "Hopper", specs)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 3, rep.Results["Hopper_seed_2"].ExitCode)
	assert.Contains(t, rep.Results["Hopper_seed_2"].Error, "3")
	assert.False(t, rep.AllSucceeded())
}

func TestRun_CancelMidRun(t *testing.T) {
	base := t.TempDir()
	started := make(chan string, 10)
	runner := &testutil.CountingRunner{Delay: time.Minute, Started: started}
	tool := &mockReportTool{}
	o := New(base, func(o *Options) {
		o.MaxWorkers = 2
		o.Runner = runner
		o.ReportTool = tool
		o.Out = &bytes.Buffer{}
	})

	type outcome struct {
		rep core.ExperimentReport
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := o.Run(context.Background(), "Hopper", build(t, base, []int{1, 2, 3, 4, 5}))
		done <- outcome{rep, err}
	}()

	<-started
	<-started
	require.Eventually(t, func() bool { return len(o.Active()) == 2 }, time.Second, 5*time.Millisecond)
	active := o.Active()
	assert.Equal(t, "Hopper_seed_1", active[0].Spec.Name)
	assert.Equal(t, "Hopper_seed_2", active[1].Spec.Name)

	o.Cancel()
	o.Cancel()

	var res outcome
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	require.ErrorIs(t, res.err, core.ErrCancelled)
	assert.True(t, res.rep.Cancelled)
	assert.Equal(t, 5, res.rep.Total)
	assert.Zero(t, res.rep.Successful)
	assert.Equal(t, res.rep.Total, res.rep.Successful+res.rep.Failed)
	for name, r := range res.rep.Results {
		assert.Equal(t, core.CancelledError, r.Error, name)
	}
	assert.Empty(t, o.Active())
	assert.Equal(t, 2, len(runner.Order()), "no job is dispatched after cancel")
	tool.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestRun_CancelTerminatesProcesses(t *testing.T) {
	testutil.EnableTrainer(t)
	base := t.TempDir()
	cmd := append(testutil.TrainerCommand(), "-sleep", "30s")
	specs := build(t, base, []int{1, 2, 3}, cmd...)

	o := New(base, func(o *Options) {
		o.MaxWorkers = 2
		o.GracePeriod = 2 * time.Second
		o.Out = &bytes.Buffer{}
	})

	go func() {
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if jobs := o.Active(); len(jobs) == 2 && jobs[0].PID > 0 && jobs[1].PID > 0 {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		o.Cancel()
	}()

	begin := time.Now()
	rep, err := o.Run(context.Background(), "Hopper", specs)
	require.ErrorIs(t, err, core.ErrCancelled)
	assert.Less(t, time.Since(begin), 25*time.Second)
	assert.Equal(t, 3, rep.Failed)
	for _, r := range rep.Results {
		assert.True(t, r.Cancelled(), r.Name)
	}
	for _, s := range specs[:2] {
		_, err := os.Stat(filepath.Join(s.WorkingDir, core.LogFileName))
		assert.NoError(t, err, "log of a terminated job stays readable")
	}
}

func TestRun_CancelBeforeRun(t *testing.T) {
	base := t.TempDir()
	runner := &testutil.CountingRunner{}
	o := New(base, func(o *Options) {
		o.Runner = runner
		o.Out = &bytes.Buffer{}
	})
	o.Cancel()

	rep, err := o.Run(context.Background(), "Hopper", build(t, base, []int{1, 2}))
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Equal(t, 2, rep.Failed)
	assert.Empty(t, runner.Order())
}

func TestRun_ReusedInstanceReportsOnlyItsOwnRun(t *testing.T) {
	base := t.TempDir()
	runner := &testutil.CountingRunner{Result: func(s core.JobSpec) core.JobResult {
		return core.JobResult{Name: s.Name, ExitCode: 3, Error: "boom"}
	}}
	o := New(base, func(o *Options) {
		o.Runner = runner
		o.Out = &bytes.Buffer{}
	})
	specs := build(t, base, []int{1, 2})

	first, err := o.Run(context.Background(), "Hopper", specs)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Failed)

	// Nothing is running, so this must not leak into the next run.
	o.Cancel()
	runner.Result = nil

	second, err := o.Run(context.Background(), "Hopper", specs)
	require.NoError(t, err)
	assert.False(t, second.Cancelled)
	assert.Equal(t, 2, second.Successful)
	assert.Zero(t, second.Failed)
	assert.NotEqual(t, first.RunID, second.RunID)
	for _, r := range second.Results {
		assert.True(t, r.Success, r.Name)
		assert.Empty(t, r.Error, r.Name)
	}
	assert.Len(t, runner.Order(), 4, "both runs dispatch every job")
	assert.Len(t, o.Results(), 2)
}

func TestRun_CancelBeforeRunAppliesOnce(t *testing.T) {
	base := t.TempDir()
	runner := &testutil.CountingRunner{}
	o := New(base, func(o *Options) {
		o.Runner = runner
		o.Out = &bytes.Buffer{}
	})
	specs := build(t, base, []int{1, 2})

	o.Cancel()
	_, err := o.Run(context.Background(), "Hopper", specs)
	require.ErrorIs(t, err, core.ErrCancelled)
	assert.Empty(t, runner.Order())

	rep, err := o.Run(context.Background(), "Hopper", specs)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Successful)
	for _, r := range o.Results() {
		assert.False(t, r.Cancelled(), r.Name)
	}
}

func TestRun_ArtifactsPublishedAndReportToolCalled(t *testing.T) {
	testutil.EnableTrainer(t)
	base := t.TempDir()
	cmd := append(testutil.TrainerCommand(), "-artifact", "policy.pkl")
	specs := build(t, base, []int{1, 2}, cmd...)

	store := artifact.NewInMemoryStore()
	tool := &mockReportTool{}
	tool.On("Analyze", mock.Anything, base).Return(errors.New("no matplotlib")).Once()

	o := New(base, func(o *Options) {
		o.ArtifactStore = store
		o.ReportTool = tool
		o.Out = &bytes.Buffer{}
		o.Reporter = report.New(base, func(ro *report.Options) { ro.Format = report.FormatYAML })
	})
	rep, err := o.Run(context.Background(), "Hopper", specs)
	require.NoError(t, err, "report tool failures are not fatal")

	require.Len(t, rep.Artifacts, 2)
	assert.Empty(t, rep.MissingArtifacts)

	ids, err := store.List(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hopper_seed_1/policy.pkl", "Hopper_seed_2/policy.pkl"}, ids)

	loaded, err := report.Load(filepath.Join(base, "experiment_report.yaml"))
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, loaded.RunID)

	tool.AssertExpectations(t)
}

func TestRun_MissingArtifactsFlagged(t *testing.T) {
	base := t.TempDir()
	o := New(base, func(o *Options) {
		o.Runner = &testutil.CountingRunner{}
		o.Out = &bytes.Buffer{}
	})
	rep, err := o.Run(context.Background(), "Hopper", build(t, base, []int{1}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hopper_seed_1"}, rep.MissingArtifacts)
	assert.True(t, rep.Results["Hopper_seed_1"].Success)
}

func TestRun_Validation(t *testing.T) {
	o := New(t.TempDir())

	_, err := o.Run(context.Background(), "Hopper", nil)
	assert.True(t, core.IsConfigurationError(err))

	spec := core.JobSpec{Name: "Hopper_seed_1", Argv: []string{"trainer"}}
	_, err = o.Run(context.Background(), "Hopper", []core.JobSpec{spec, spec})
	assert.True(t, core.IsConfigurationError(err))
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	base := t.TempDir()
	started := make(chan string, 1)
	o := New(base, func(o *Options) {
		o.Runner = &testutil.CountingRunner{Delay: time.Minute, Started: started}
		o.Out = &bytes.Buffer{}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = o.Run(context.Background(), "Hopper", build(t, base, []int{1}))
	}()
	<-started

	_, err := o.Run(context.Background(), "Hopper", build(t, base, []int{2}))
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	o.Cancel()
	wg.Wait()
}

func TestRun_ParentContextCancel(t *testing.T) {
	base := t.TempDir()
	started := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	o := New(base, func(o *Options) {
		o.MaxWorkers = 1
		o.Runner = &testutil.CountingRunner{Delay: time.Minute, Started: started}
		o.Out = &bytes.Buffer{}
	})

	go func() {
		<-started
		cancel()
	}()
	rep, err := o.Run(ctx, "Hopper", build(t, base, []int{1, 2}))
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Equal(t, 2, rep.Failed)
}
