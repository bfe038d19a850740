package core

import "context"

// JobRunner executes one JobSpec to completion. Implementations must never
// panic or return without a result: every failure is reported through the
// returned JobResult.
type JobRunner interface {
	Run(ctx context.Context, spec JobSpec) JobResult
}

// JobRunnerFunc adapts a plain function to JobRunner.
type JobRunnerFunc func(ctx context.Context, spec JobSpec) JobResult

// Run implements JobRunner.
func (f JobRunnerFunc) Run(ctx context.Context, spec JobSpec) JobResult { return f(ctx, spec) }

// ResultStore is the single synchronized append point for JobResults.
// Record overwrites any previous result for the same name (last write wins).
// Reset drops every result; the orchestrator calls it when a run begins.
type ResultStore interface {
	Record(result JobResult) error
	Get(name string) (JobResult, bool)
	List() []JobResult
	Len() int
	Reset()
}

// Confirmer asks the operator whether dispatch should start.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) (bool, error) { return f(prompt) }

// ReportTool is the opaque post-run analysis collaborator reading the
// artifacts under the experiment base directory.
type ReportTool interface {
	Analyze(ctx context.Context, baseDir string) error
}
