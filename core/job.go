package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogFileName is the per-job file receiving the trainer's combined output.
const LogFileName = "training.log"

// JobName derives the unique job name for a workload/seed pair.
func JobName(workload string, seed int) string {
	return fmt.Sprintf("%s_seed_%d", workload, seed)
}

// NewRunID returns a unique identifier for one orchestrated experiment.
func NewRunID() string { return uuid.NewString() }

// JobSpec describes one training run. It is immutable once built; callers
// must not modify Argv or ExtraParams after construction.
type JobSpec struct {
	Name        string            `json:"name" yaml:"name"`
	WorkloadID  string            `json:"workload" yaml:"workload"`
	Seed        int               `json:"seed" yaml:"seed"`
	WorkingDir  string            `json:"working_dir" yaml:"working_dir"`
	Argv        []string          `json:"argv" yaml:"argv"`
	ExtraParams map[string]string `json:"extra_params,omitempty" yaml:"extra_params,omitempty"`
}

// RunningJob is the registry view of a dispatched job. The process handle
// itself stays with the runner that spawned it.
type RunningJob struct {
	Spec      JobSpec   `json:"spec"`
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
	LogFile   string    `json:"log_file"`
}

// JobResult is the outcome of exactly one JobSpec.
type JobResult struct {
	Name     string        `json:"name" yaml:"name"`
	ExitCode int           `json:"return_code" yaml:"return_code"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Success  bool          `json:"success" yaml:"success"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Cancelled reports whether the result was produced by cancellation.
func (r JobResult) Cancelled() bool {
	return !r.Success && r.Error == CancelledError
}

// CancelledResult synthesizes the failed result recorded for a job that
// never completed normally.
func CancelledResult(name string, elapsed time.Duration) JobResult {
	if elapsed < 0 {
		elapsed = 0
	}
	return JobResult{Name: name, ExitCode: -1, Duration: elapsed, Error: CancelledError}
}

// ArtifactSummary lists the output files found for one successful job.
type ArtifactSummary struct {
	Job       string   `json:"experiment" yaml:"experiment"`
	Directory string   `json:"directory" yaml:"directory"`
	Files     []string `json:"models" yaml:"models"`
}

// ExperimentReport aggregates every JobResult of one orchestrated run.
type ExperimentReport struct {
	RunID            string               `json:"run_id" yaml:"run_id"`
	Timestamp        time.Time            `json:"timestamp" yaml:"timestamp"`
	Workload         string               `json:"workload" yaml:"workload"`
	Total            int                  `json:"total_experiments" yaml:"total_experiments"`
	Successful       int                  `json:"successful" yaml:"successful"`
	Failed           int                  `json:"failed" yaml:"failed"`
	Cancelled        bool                 `json:"cancelled" yaml:"cancelled"`
	TotalWallTime    time.Duration        `json:"total_wall_time" yaml:"total_wall_time"`
	TotalTimeHours   float64              `json:"total_time_hours" yaml:"total_time_hours"`
	AverageJobTime   time.Duration        `json:"average_job_time" yaml:"average_job_time"`
	Results          map[string]JobResult `json:"results" yaml:"results"`
	Artifacts        []ArtifactSummary    `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	MissingArtifacts []string             `json:"missing_artifacts,omitempty" yaml:"missing_artifacts,omitempty"`
}

// AllSucceeded reports whether every job succeeded and the run was not cancelled.
func (r ExperimentReport) AllSucceeded() bool {
	return !r.Cancelled && r.Failed == 0 && r.Successful == r.Total
}
