package mirror

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// attemptRenames finds files that look renamed between src and dst and
// renames the dst copy to match before the mirror runs. A filesystem rename
// is much cheaper than the copy/delete the mirror would otherwise do,
// especially on snapshot-replicated filesystems.
//
// Matching is heuristic: files that exist only on one side are paired by
// size. Size is a good discriminator for the large media files this pays off
// for, and it doesn't need to be right. A wrong pairing just means the mirror
// afterwards rewrites the file's contents.
func attemptRenames(src, dst string) {
	dstIsDir, err := afero.IsDir(fs, dst)
	if err != nil || !dstIsDir {
		return
	}

	srcEntries, err := afero.ReadDir(fs, src)
	if err != nil {
		return
	}
	dstEntries, err := afero.ReadDir(fs, dst)
	if err != nil {
		return
	}

	// Recurse into directories present on both sides first.
	dstDirs := map[string]bool{}
	for _, entry := range dstEntries {
		if entry.IsDir() {
			dstDirs[entry.Name()] = true
		}
	}
	for _, entry := range srcEntries {
		if entry.IsDir() && dstDirs[entry.Name()] {
			attemptRenames(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()))
		}
	}

	srcSizes := map[string]int64{}
	for _, entry := range srcEntries {
		if !entry.IsDir() {
			srcSizes[entry.Name()] = entry.Size()
		}
	}
	dstSizes := map[string]int64{}
	for _, entry := range dstEntries {
		if !entry.IsDir() {
			dstSizes[entry.Name()] = entry.Size()
		}
	}

	// Candidates only exist on one side.
	sizeToDstName := map[int64]string{}
	for name, size := range dstSizes {
		if _, alsoInSrc := srcSizes[name]; !alsoInSrc {
			sizeToDstName[size] = name
		}
	}

	for name, size := range srcSizes {
		if _, alsoInDst := dstSizes[name]; alsoInDst {
			continue
		}
		dstName, ok := sizeToDstName[size]
		if !ok {
			continue
		}
		delete(sizeToDstName, size)

		from := filepath.Join(dst, dstName)
		to := filepath.Join(dst, name)
		log.WithFields(log.Fields{"from": from, "to": name}).Debug(
			"Renaming probable renamed file in archive")
		if err := fs.Rename(from, to); err != nil {
			log.WithError(err).WithField("path", from).Debug("Rename failed, mirror will recopy")
		}
	}
}
