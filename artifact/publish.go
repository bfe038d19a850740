package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hupe1980/trainmesh/core"
)

// ArtifactID is the store key of one collected file.
func ArtifactID(job, file string) string {
	return path.Join(job, filepath.ToSlash(file))
}

// Publish copies every collected artifact file into store under the
// experiment id. It keeps going after a failed file and returns how many
// files were stored together with the joined errors.
func Publish(ctx context.Context, store core.ArtifactStore, experimentID string, summaries []core.ArtifactSummary) (int, error) {
	if store == nil {
		return 0, nil
	}
	var (
		published int
		errs      []error
	)
	for _, s := range summaries {
		for _, f := range s.Files {
			if err := ctx.Err(); err != nil {
				return published, errors.Join(append(errs, err)...)
			}
			data, err := os.ReadFile(filepath.Join(s.Directory, f))
			if err != nil {
				errs = append(errs, fmt.Errorf("read %s/%s: %w", s.Job, f, err))
				continue
			}
			if err := store.Save(ctx, experimentID, ArtifactID(s.Job, f), data); err != nil {
				errs = append(errs, fmt.Errorf("store %s/%s: %w", s.Job, f, err))
				continue
			}
			published++
		}
	}
	return published, errors.Join(errs...)
}
