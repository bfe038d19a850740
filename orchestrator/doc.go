// Package orchestrator implements the supervisor that runs one experiment:
// a set of JobSpecs sharing a workload, dispatched under a concurrency limit
// and aggregated into an ExperimentReport.
//
// # Core Responsibilities
//
// Dispatch:
//   - FIFO dispatch through a bounded scheduler.Pool
//   - One JobResult per JobSpec, recorded through a single ResultStore
//   - Fault isolation: a failed or unspawnable job never stops the others
//
// Cancellation:
//   - Cancel is safe from any goroutine (typically a signal handler)
//   - Running jobs are terminated (SIGTERM, grace period, kill)
//   - Jobs without a result are recorded as failed with error "cancelled"
//
// Post-run:
//   - Report generation and persistence
//   - Artifact collection and optional publishing to an ArtifactStore
//   - Human-readable summary and the optional post-run ReportTool
//
// # State
//
// An Orchestrator owns all mutable state of a run: the result store, the
// live job registry, the cancel function and the start time. Nothing is kept
// in package level variables, so several orchestrators can coexist in one
// process (tests rely on that). Every Run starts from a reset result store
// and registry, so one Orchestrator can run experiments back to back.
//
// # Monitoring
//
// A resource monitor runs on its own goroutine for the duration of the
// dispatch phase. It only reads the scheduler's active counter and stops at
// the completion barrier.
//
// # Basic Usage
//
//	specs, _ := jobspec.NewBuilder("runs", "python3", "run_pderl.py").Build("Hopper-v2", []int{1, 2, 3}, jobspec.Params{})
//	orch := orchestrator.New("runs", func(o *orchestrator.Options) {
//		o.MaxWorkers = 2
//	})
//	rep, err := orch.Run(ctx, "Hopper-v2", specs)
package orchestrator
