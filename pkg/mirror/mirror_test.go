package mirror

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) {
	for path, contents := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	contents, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(contents)
}

func TestMirrorCopiesAndDeletes(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/photos/new.jpg":          "new contents",
		"/work/photos/changed.jpg":      "fresh",
		"/work/photos/same.jpg":         "unchanged",
		"/work/photos/nested/deep.txt":  "deep",
		"/archive/photos/changed.jpg":   "stale",
		"/archive/photos/same.jpg":      "unchanged",
		"/archive/photos/deleted.jpg":   "to be removed",
		"/archive/photos/old-dir/x.txt": "whole dir to be removed",
	})

	exec := &Executor{}
	assert.NoError(t, exec.Mirror("/work/photos", "/archive/photos"))

	assert.Equal(t, "new contents", readFile(t, "/archive/photos/new.jpg"))
	assert.Equal(t, "fresh", readFile(t, "/archive/photos/changed.jpg"))
	assert.Equal(t, "unchanged", readFile(t, "/archive/photos/same.jpg"))
	assert.Equal(t, "deep", readFile(t, "/archive/photos/nested/deep.txt"))

	for _, gone := range []string{
		"/archive/photos/deleted.jpg",
		"/archive/photos/old-dir",
	} {
		exists, err := afero.Exists(fs, gone)
		assert.NoError(t, err)
		assert.False(t, exists, gone)
	}
}

func TestMirrorCreatesDestination(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/fresh/a.txt": "a",
	})
	require.NoError(t, fs.MkdirAll("/archive", 0755))

	exec := &Executor{}
	assert.NoError(t, exec.Mirror("/work/fresh", "/archive/fresh"))
	assert.Equal(t, "a", readFile(t, "/archive/fresh/a.txt"))
}

func TestMirrorReplacesFileWithDir(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/p/item/child.txt": "now a directory",
		"/archive/p/item":        "used to be a file",
	})

	exec := &Executor{}
	assert.NoError(t, exec.Mirror("/work/p", "/archive/p"))
	assert.Equal(t, "now a directory", readFile(t, "/archive/p/item/child.txt"))
}

func TestMirrorHonorsIgnore(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/p/keep.txt":            "keep",
		"/work/p/scratch.tmp":         "don't copy",
		"/work/p/.git/config":         "don't copy",
		"/archive/p/archive-only.tmp": "don't delete",
	})

	exec := &Executor{Ignore: []string{"*.tmp", ".git"}}
	assert.NoError(t, exec.Mirror("/work/p", "/archive/p"))

	assert.Equal(t, "keep", readFile(t, "/archive/p/keep.txt"))

	// Ignored source entries weren't copied.
	for _, skipped := range []string{"/archive/p/scratch.tmp", "/archive/p/.git"} {
		exists, err := afero.Exists(fs, skipped)
		assert.NoError(t, err)
		assert.False(t, exists, skipped)
	}

	// Ignored destination entries weren't deleted.
	assert.Equal(t, "don't delete", readFile(t, "/archive/p/archive-only.tmp"))
}

func TestMirrorIsIdempotent(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/p/a.txt":     "a",
		"/work/p/sub/b.txt": "b",
	})

	exec := &Executor{}
	assert.NoError(t, exec.Mirror("/work/p", "/archive/p"))
	assert.NoError(t, exec.Mirror("/work/p", "/archive/p"))

	assert.Equal(t, "a", readFile(t, "/archive/p/a.txt"))
	assert.Equal(t, "b", readFile(t, "/archive/p/sub/b.txt"))
}

func TestRename(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/archive/photos/a.txt": "a",
	})

	exec := &Executor{}
	newPath, err := exec.Rename("/archive/photos", "photos-2024")
	assert.NoError(t, err)
	assert.Equal(t, "/archive/photos-2024", newPath)
	assert.Equal(t, "a", readFile(t, "/archive/photos-2024/a.txt"))
}

func TestRenameRefusesExistingTarget(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/archive/photos/a.txt": "a",
		"/archive/taken/b.txt":  "b",
	})

	exec := &Executor{}
	_, err := exec.Rename("/archive/photos", "taken")
	assert.Error(t, err)
}

func TestWriteMarkerAndGenerate(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/p", 0755))

	exec := &Executor{}
	identity := exec.GenerateIdentity()
	assert.True(t, identity.Assigned())
	assert.NoError(t, exec.WriteMarker("/work/p", identity))

	assert.Equal(t, identity.String()+"\n", readFile(t, "/work/p/.awid"))
}

func TestDryRunTouchesNothing(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeFiles(t, map[string]string{
		"/work/p/a.txt": "a",
	})

	exec := DryRun{}
	assert.NoError(t, exec.Mirror("/work/p", "/archive/p"))
	newPath, err := exec.Rename("/archive/old", "new")
	assert.NoError(t, err)
	assert.Equal(t, "/archive/new", newPath)
	assert.NoError(t, exec.WriteMarker("/work/p", exec.GenerateIdentity()))

	exists, err := afero.Exists(fs, "/archive/p")
	assert.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(fs, "/work/p/.awid")
	assert.NoError(t, err)
	assert.False(t, exists)
}
