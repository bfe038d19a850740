// Package observability wires OpenTelemetry tracing for the orchestrator.
// Spans are emitted for the experiment as a whole and for every job; with
// the "none" exporter a no-op provider is installed and tracing costs nothing.
package observability
