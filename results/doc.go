// Package results houses concrete implementations of core.ResultStore.
// The interface itself (and the JobResult type) live in the core package so
// the orchestrator depends on the contract, not on a concrete store.
package results
