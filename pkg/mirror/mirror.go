// Package mirror implements the filesystem side of a reconciliation plan:
// one-way recursive copy with deletion of extraneous destination entries.
package mirror

import (
	"crypto/sha512"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/alugowski/archive-workdir/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// mirrorDir makes dst's contents equal src's contents. `rel` is the path of
// the current level relative to the mirror root, used for ignore matching.
func mirrorDir(src, dst, rel string, ignore []string) error {
	if err := fs.MkdirAll(dst, 0755); err != nil {
		return errors.WithContext(err, "create destination")
	}

	srcEntries, err := afero.ReadDir(fs, src)
	if err != nil {
		return errors.WithContext(err, "list source")
	}
	dstEntries, err := afero.ReadDir(fs, dst)
	if err != nil {
		return errors.WithContext(err, "list destination")
	}

	srcNames := map[string]bool{}
	for _, entry := range srcEntries {
		entryRel := filepath.Join(rel, entry.Name())
		if ignored(entryRel, entry.Name(), ignore) {
			continue
		}
		srcNames[entry.Name()] = true

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			// A destination file squatting on the directory's name has to go
			// before we can recurse into it.
			if dstInfo, err := fs.Stat(dstPath); err == nil && !dstInfo.IsDir() {
				if err := fs.Remove(dstPath); err != nil {
					return errors.WithContext(err, "replace file with directory")
				}
			}
			if err := mirrorDir(srcPath, dstPath, entryRel, ignore); err != nil {
				return err
			}
			continue
		}

		if err := copyFileIfChanged(srcPath, dstPath, entry); err != nil {
			return errors.WithContext(err, "copy "+entryRel)
		}
	}

	// Delete anything extra in the destination. Ignored names survive on the
	// destination side too, so an ignore pattern can't be used to wipe them.
	for _, entry := range dstEntries {
		entryRel := filepath.Join(rel, entry.Name())
		if srcNames[entry.Name()] || ignored(entryRel, entry.Name(), ignore) {
			continue
		}
		dstPath := filepath.Join(dst, entry.Name())
		log.WithField("path", dstPath).Debug("Removing extraneous archive entry")
		if err := fs.RemoveAll(dstPath); err != nil {
			return errors.WithContext(err, "remove "+entryRel)
		}
	}

	return nil
}

// copyFileIfChanged copies src over dst unless the two already have the same
// size, mode, and contents.
func copyFileIfChanged(src, dst string, srcInfo os.FileInfo) error {
	dstInfo, err := fs.Stat(dst)
	if err == nil {
		if dstInfo.IsDir() {
			// A destination directory squatting on a file's name.
			if err := fs.RemoveAll(dst); err != nil {
				return errors.WithContext(err, "replace directory with file")
			}
		} else if dstInfo.Size() == srcInfo.Size() {
			same, err := sameContents(src, dst)
			if err != nil {
				return err
			}
			if same {
				if dstInfo.Mode() != srcInfo.Mode() {
					if err := fs.Chmod(dst, srcInfo.Mode()); err != nil {
						return errors.WithContext(err, "chmod")
					}
				}
				return nil
			}
		}
	}

	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return errors.WithContext(err, "copy contents")
	}
	return nil
}

func sameContents(a, b string) (bool, error) {
	hashA, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hashB, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// hashFile returns the sha512 hash of the file at the given path.
func hashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// ignored reports whether an entry matches any ignore pattern. Patterns are
// matched against both the slash path relative to the mirror root and the
// bare entry name, so ".git" excludes a .git at any depth.
func ignored(rel, name string, ignore []string) bool {
	relSlash := filepath.ToSlash(rel)
	for _, pattern := range ignore {
		for _, candidate := range []string{relSlash, name} {
			if match, err := doublestar.Match(pattern, candidate); err == nil && match {
				return true
			}
		}
	}
	return false
}
