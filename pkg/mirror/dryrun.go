package mirror

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/alugowski/archive-workdir/pkg/marker"
	"github.com/alugowski/archive-workdir/pkg/reconcile"
)

// DryRun is an executor that logs what would happen and touches nothing.
// Identities are still generated so the logged plan reads completely, but
// they are never persisted.
type DryRun struct{}

var _ reconcile.Executor = DryRun{}

func (DryRun) Mirror(src, dst string) error {
	log.WithFields(log.Fields{"src": src, "dst": dst}).Info("Dry run: would mirror")
	return nil
}

func (DryRun) Rename(path, newName string) (string, error) {
	log.WithFields(log.Fields{"path": path, "to": newName}).Info("Dry run: would rename")
	// Report the path the rename would have produced so the subsequent
	// mirror log points at the right destination.
	return filepath.Join(filepath.Dir(path), newName), nil
}

func (DryRun) WriteMarker(path string, identity marker.Identity) error {
	log.WithFields(log.Fields{"path": path, "id": identity.String()}).Info(
		"Dry run: would write marker")
	return nil
}

func (DryRun) GenerateIdentity() marker.Identity {
	return marker.Generate()
}
