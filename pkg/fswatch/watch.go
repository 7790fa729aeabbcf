// Package fswatch notices changes within the working tree so watch mode can
// re-run the archive pass.
package fswatch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/alugowski/archive-workdir/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Watch watches the working tree rooted at `root` and sends an event on the
// returned channel whenever anything under it changes. Events are coalesced:
// a burst of file changes produces a single pending notification.
func Watch(root string) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handles for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(watcher.Events), nil
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getPathsToWatch returns the tree root and every directory below it.
// fsnotify doesn't watch recursively, so each directory is registered
// individually. Directory events on a watched parent cover file creation and
// deletion within it.
func getPathsToWatch(root string) (paths []string, err error) {
	info, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}
	if !info.IsDir() {
		return nil, errors.New("watch root is not a directory")
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}
		if !fi.IsDir() {
			return nil
		}
		// New subdirectories created after the watch starts aren't picked
		// up until the watch restarts. Good enough for a tool whose
		// fallback is the next cron run.
		paths = append(paths, filepath.Clean(path))
		return nil
	})
	return paths, err
}
