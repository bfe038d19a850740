// Package jobspec expands a workload, a seed list and typed training
// overrides into independent core.JobSpec descriptors, and provides the
// named presets (seed list plus default overrides) offered by the CLI.
package jobspec
