// Package logging provides a minimal logging interface and adapters for trainmesh.
//
// The Logger interface defines the standard leveled methods (Debug, Info, Warn,
// Error) that the runner, scheduler, monitor and orchestrator use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - JobLogger with job/component context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text")
//	orch := orchestrator.New(func(o *orchestrator.Options) { o.Logger = logger })
//
// Arguments after the message are slog key/value pairs.
package logging
