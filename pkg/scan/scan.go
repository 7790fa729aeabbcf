// Package scan lists the immediate subdirectories of a tree and annotates
// each with its persisted identity, if any.
package scan

import (
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/marker"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Entry is one immediate child directory of a tree.
type Entry struct {
	// Name is the directory's current base name. It can change between runs;
	// the identity is what stays stable.
	Name string

	// Path is the directory's full path within its tree.
	Path string

	// Identity is the persisted identity, or the zero value if the directory
	// is unmarked.
	Identity marker.Identity
}

// MalformedMarker records a marker file that exists but couldn't be parsed.
// The entry it belongs to degrades to name-based matching; the anomaly is
// surfaced so an operator can repair or remove the file.
type MalformedMarker struct {
	Path   string
	Reason string
}

// Tree scans the immediate children of `root` and returns an entry for each
// subdirectory, sorted by name. Files directly under `root` are ignored.
// Scanning is read-only.
//
// A missing or unreadable root is fatal: without a listing there is nothing
// safe the caller can decide.
func Tree(root string) ([]Entry, []MalformedMarker, error) {
	info, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileNotFound{Path: root}
		}
		return nil, nil, errors.WithContext(err, "stat tree root")
	}
	if !info.IsDir() {
		return nil, nil, errors.New("tree root is not a directory")
	}

	children, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, nil, errors.WithContext(err, "list tree root")
	}

	var entries []Entry
	var malformed []MalformedMarker
	for _, child := range children {
		if !child.IsDir() {
			continue
		}

		path := filepath.Join(root, child.Name())
		identity, err := marker.Read(fs, path)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn(
				"Ignoring unparseable identity marker")
			malformed = append(malformed, MalformedMarker{
				Path:   path,
				Reason: err.Error(),
			})
		}

		entries = append(entries, Entry{
			Name:     child.Name(),
			Path:     path,
			Identity: identity,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, malformed, nil
}
