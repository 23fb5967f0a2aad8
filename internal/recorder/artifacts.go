package recorder

import (
	"context"
	"log/slog"
	"os"
)

// attach uploads the given files as one named bundle, skipping paths that
// do not exist locally. A missing file is a per-file diagnostic, never a
// failure of the attach call; a list with no existing files still produces
// an (empty) bundle. Backend failures do propagate.
func (r *Recorder) attach(ctx context.Context, runID, name, kind string, files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			slog.Warn("artifact file missing, skipping", "file", f, "artifact", name, "error", err)
			continue
		}
		existing = append(existing, f)
	}

	return r.backend.AttachArtifact(ctx, runID, name, kind, existing)
}
