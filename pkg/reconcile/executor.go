package reconcile

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/marker"
)

// Executor performs the filesystem side of a plan. The reconciler owns no
// filesystem code itself; injecting the executor keeps the decision logic
// testable with a fake that just records calls.
type Executor interface {
	// Mirror recursively makes dst's contents equal src's contents, deleting
	// anything in dst that src doesn't have. dst is created if missing.
	Mirror(src, dst string) error

	// Rename renames the directory at path to newName within its parent and
	// returns the resulting path.
	Rename(path, newName string) (string, error)

	// WriteMarker persists an identity into the directory at path.
	WriteMarker(path string, identity marker.Identity) error

	// GenerateIdentity returns a fresh identity, unique across the archive's
	// lifetime.
	GenerateIdentity() marker.Identity
}

// Apply executes every mutating pairing in the plan. Pairings are
// independent, so one failing doesn't stop the others; all failures are
// collected and returned. Non-mutating pairings (the reportable anomalies)
// are skipped here and surfaced by the caller's reporter.
func Apply(plan Plan, exec Executor) []error {
	var failures []error
	for _, pairing := range plan.Pairings {
		if !pairing.Action.Mutates() {
			continue
		}
		if err := applyPairing(plan, pairing, exec); err != nil {
			log.WithError(err).WithField("dir", pairing.Work.Name).Error(
				"Failed to sync directory")
			failures = append(failures, errors.WithContext(err, pairing.Work.Name))
		}
	}
	return failures
}

func applyPairing(plan Plan, pairing Pairing, exec Executor) error {
	w := pairing.Work

	switch pairing.Action {
	case ActionSync:
		dst := pairing.Archive.Path
		if pairing.Archive.Name != w.Name {
			// The working directory was renamed; the rename reaches the
			// archive before the mirror so the mirror targets the right path.
			log.WithFields(log.Fields{
				"from": pairing.Archive.Name,
				"to":   w.Name,
			}).Info("Directory was renamed, renaming archive copy")

			renamed, err := exec.Rename(dst, w.Name)
			if err != nil {
				return errors.WithContext(err, "rename archive copy")
			}
			dst = renamed
		}
		if err := exec.Mirror(w.Path, dst); err != nil {
			return errors.WithContext(err, "mirror")
		}
		return nil

	case ActionSyncAndAssign:
		if err := exec.Mirror(w.Path, pairing.Archive.Path); err != nil {
			return errors.WithContext(err, "mirror")
		}
		return assignIdentity(exec, w.Path, pairing.Archive.Path)

	case ActionCreateAndAssign:
		dst := filepath.Join(plan.ArchiveRoot, w.Name)
		if err := exec.Mirror(w.Path, dst); err != nil {
			return errors.WithContext(err, "mirror")
		}
		return assignIdentity(exec, w.Path, dst)
	}

	return nil
}

// assignIdentity stamps one freshly generated identity into both copies of a
// newly tracked pair. Future runs will match the pair by identity, making the
// relationship rename-proof.
func assignIdentity(exec Executor, workPath, archivePath string) error {
	identity := exec.GenerateIdentity()
	for _, path := range []string{workPath, archivePath} {
		if err := exec.WriteMarker(path, identity); err != nil {
			return errors.WithContext(err, "write marker")
		}
	}
	return nil
}
