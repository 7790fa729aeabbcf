package scan

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/marker"
)

func TestTree(t *testing.T) {
	fs = afero.NewMemMapFs()

	assert.NoError(t, fs.MkdirAll("/work/photos", 0755))
	assert.NoError(t, fs.MkdirAll("/work/code", 0755))
	assert.NoError(t, fs.MkdirAll("/work/notes", 0755))
	assert.NoError(t, afero.WriteFile(fs, "/work/stray-file", []byte("x"), 0644))
	assert.NoError(t, afero.WriteFile(fs, "/work/photos/.awid",
		[]byte("photos-id\n"), 0644))

	entries, malformed, err := Tree("/work")
	assert.NoError(t, err)
	assert.Empty(t, malformed)

	photosID, parseErr := marker.Parse("photos-id")
	assert.NoError(t, parseErr)

	assert.Equal(t, []Entry{
		{Name: "code", Path: "/work/code"},
		{Name: "notes", Path: "/work/notes"},
		{Name: "photos", Path: "/work/photos", Identity: photosID},
	}, entries)
}

func TestTreeMalformedMarker(t *testing.T) {
	fs = afero.NewMemMapFs()

	assert.NoError(t, fs.MkdirAll("/work/broken", 0755))
	assert.NoError(t, afero.WriteFile(fs, "/work/broken/.awid",
		[]byte("bad\x00token"), 0644))

	entries, malformed, err := Tree("/work")
	assert.NoError(t, err)

	// The entry degrades to unmarked and the anomaly is surfaced.
	assert.Len(t, entries, 1)
	assert.False(t, entries[0].Identity.Assigned())
	assert.Len(t, malformed, 1)
	assert.Equal(t, "/work/broken", malformed[0].Path)
}

func TestTreeEmptyMarkerIsSilent(t *testing.T) {
	fs = afero.NewMemMapFs()

	assert.NoError(t, fs.MkdirAll("/work/untracked", 0755))
	assert.NoError(t, afero.WriteFile(fs, "/work/untracked/.awid",
		[]byte("\n"), 0644))

	entries, malformed, err := Tree("/work")
	assert.NoError(t, err)
	assert.Empty(t, malformed)
	assert.Len(t, entries, 1)
	assert.False(t, entries[0].Identity.Assigned())
}

func TestTreeMissingRoot(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, _, err := Tree("/does-not-exist")
	assert.Error(t, err)
	assert.Equal(t, errors.FileNotFound{Path: "/does-not-exist"}, errors.RootCause(err))
}
