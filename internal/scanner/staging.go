package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StageFile writes an upload payload to a uniquely named file under dir so an
// external engine can scan it. The returned cleanup removes the file and must
// be called on every exit path; the staged file is owned exclusively by the
// request that created it.
func StageFile(dir string, payload []byte) (string, func(), error) {
	name := fmt.Sprintf("upload_%s", uuid.NewString())
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", nil, fmt.Errorf("stage file for scanning: %w", err)
	}

	cleanup := func() {
		// Best effort; a leaked temp file must not fail the upload flow.
		_ = os.Remove(path)
	}
	return path, cleanup, nil
}
