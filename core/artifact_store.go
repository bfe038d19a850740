package core

import "context"

// ArtifactStore defines the interface for artifact persistence. Implementations
// should be thread-safe and scope artifacts by experiment identifier. Short method
// names (Save/Get/List/Delete) mirror the result store for consistency.
type ArtifactStore interface {
	Save(ctx context.Context, experimentID, artifactID string, data []byte) error
	Get(ctx context.Context, experimentID, artifactID string) ([]byte, error)
	List(ctx context.Context, experimentID string) ([]string, error)
	Delete(ctx context.Context, experimentID, artifactID string) error
}
