// Package process launches the external training executable for one job and
// turns its lifecycle into a core.JobResult.
//
// A Runner creates the job's working directory, redirects the combined
// stdout/stderr of the trainer into <working_dir>/training.log, waits for the
// process and classifies the outcome:
//
//   - spawn failure (missing executable, permission denied): exit code -1 and a
//     core.SpawnError message
//   - non-zero exit: a core.JobFailure message carrying the exit code
//   - context cancellation: SIGTERM, a bounded grace period, then a force kill;
//     the result carries core.CancelledError
//
// Tool runs the post-run reporting collaborator against the experiment
// directory once every job has finished.
package process
