// Package report aggregates JobResults into an ExperimentReport, persists it
// as JSON or YAML, collects per-job training artifacts and renders the
// human-readable end-of-run summary.
//
// Generate is deterministic for identical input except for the report
// timestamp: the wall time is derived from Meta rather than the clock, map
// keys are encoded in sorted order by both encoders.
package report
