package mark

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/alugowski/archive-workdir/cmd/util"
	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/marker"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// New creates a new `mark` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "mark SUBDIR_NAME WORK_DIR ARCHIVE_DIR",
		Short: "Mark a directory that exists in both trees so it syncs on the next run",
		Long: "Write one freshly generated identity marker into both copies of the\n" +
			"named subdirectory. Unmarked directories that exist on both sides are\n" +
			"normally ignored to avoid accidental data loss by overwriting changes\n" +
			"on the archive side; marking them is the explicit opt-in. Marking also\n" +
			"resolves a conflict by reasserting which archive copy is the real one.",
		Args: cobra.ExactArgs(3),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(args[0], args[1], args[2]); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(name, workDir, archiveDir string) error {
	workPath := filepath.Join(workDir, name)
	archivePath := filepath.Join(archiveDir, name)

	for _, path := range []string{workPath, archivePath} {
		isDir, err := afero.IsDir(fs, path)
		if err != nil || !isDir {
			return errors.NewFriendlyError(
				"%q is not a directory.\n"+
					"`mark` requires the subdirectory to exist in both the working\n"+
					"directory and the archive.", path)
		}
	}

	// An existing marker is overwritten. That's the documented way to
	// re-assert ownership after a conflict, so only warn.
	for _, path := range []string{workPath, archivePath} {
		existing, err := marker.Read(fs, path)
		if err == nil && existing.Assigned() {
			log.WithFields(log.Fields{
				"path": path,
				"id":   existing.String(),
			}).Warn("Overwriting existing identity marker")
		}
	}

	identity := marker.Generate()
	for _, path := range []string{workPath, archivePath} {
		if err := marker.Write(fs, path, identity); err != nil {
			return errors.WithContext(err, "write marker")
		}
		log.WithField("path", path).Info("Marked")
	}
	return nil
}
