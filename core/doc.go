// Package core provides the foundational domain types and interfaces used by
// trainmesh. It defines the core abstractions for:
//
//   - Jobs (JobSpec descriptors, RunningJob registry entries, JobResult outcomes)
//   - Experiment reports aggregating every job of one orchestrated run
//   - The error taxonomy shared by builder, runner, monitor and orchestrator
//   - Pluggable collaborators: job runners, result and artifact stores,
//     confirmation prompts and post-run report tools
//
// The package intentionally keeps implementation concerns (process spawning,
// scheduling, persistence) out of scope, exposing small interfaces so tests
// and alternative backends can be substituted at wiring time.
package core
