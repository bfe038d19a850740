// Package monitor periodically samples host CPU and memory utilization while
// jobs are active and emits each sample as a log event. It never mutates
// orchestrator state and never blocks job progress; when the sampling
// facility is unavailable it logs a single warning and becomes a no-op.
package monitor
