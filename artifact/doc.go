// Package artifact contains concrete implementations of core.ArtifactStore
// and the Publish step that copies collected training artifacts into one.
//
// The canonical ArtifactStore interface lives in the core package so the
// orchestrator can depend on it without importing a storage backend. This
// package provides an in-memory store for tests and dry runs and a MinIO
// (S3 compatible) store for durable publishing.
//
// Artifacts are scoped by experiment identifier (the run id). Artifact ids
// are slash separated "job/file" paths, so a MinIO object ends up under
// "prefix/experiment/job/file".
package artifact
