package mirror

import (
	"path/filepath"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/marker"
	"github.com/alugowski/archive-workdir/pkg/reconcile"
)

// Executor is the real-filesystem implementation of reconcile.Executor.
type Executor struct {
	// Ignore patterns are excluded from mirroring in both directions: never
	// copied into the archive, never deleted from it.
	Ignore []string

	// DetectRenames enables the best-effort file rename pass before each
	// mirror.
	DetectRenames bool
}

var _ reconcile.Executor = (*Executor)(nil)

// Mirror recursively makes dst equal src, honoring the ignore patterns.
func (exec *Executor) Mirror(src, dst string) error {
	if exec.DetectRenames {
		attemptRenames(src, dst)
	}
	return mirrorDir(src, dst, "", exec.Ignore)
}

// Rename renames the directory at path to newName within the same parent.
func (exec *Executor) Rename(path, newName string) (string, error) {
	newPath := filepath.Join(filepath.Dir(path), newName)
	if _, err := fs.Stat(newPath); err == nil {
		return "", errors.New("rename target already exists")
	}
	if err := fs.Rename(path, newPath); err != nil {
		return "", errors.WithContext(err, "rename")
	}
	return newPath, nil
}

// WriteMarker persists an identity into the directory at path.
func (exec *Executor) WriteMarker(path string, identity marker.Identity) error {
	return marker.Write(fs, path, identity)
}

// GenerateIdentity returns a fresh random identity.
func (exec *Executor) GenerateIdentity() marker.Identity {
	return marker.Generate()
}
