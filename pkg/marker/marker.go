// Package marker persists the identity of a tracked subdirectory.
//
// Each tracked subdirectory carries a marker file containing a single opaque
// token. The token is what ties a working directory to its archive copy: both
// sides hold the same token, so a rename on the working side doesn't sever
// the relationship. Markers are generated once; only an explicit re-mark by
// the operator replaces one.
package marker

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/alugowski/archive-workdir/pkg/errors"
)

// Filename is the name of the marker file within a tracked subdirectory.
const Filename = ".awid"

// maxTokenLen bounds marker tokens so a stray binary file that happens to be
// named .awid can't flood logs or indexes.
const maxTokenLen = 512

// Identity is the persisted identity of a subdirectory. The zero value means
// the directory has no identity yet and falls back to name-based matching.
type Identity struct {
	id string
}

// Parse validates a raw marker token. Leading and trailing whitespace
// (including the trailing newline most editors add) is ignored. An empty
// token parses to the zero Identity without error; a token that survives
// trimming but contains control characters or is oversized is malformed.
func Parse(raw string) (Identity, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return Identity{}, nil
	}
	if len(token) > maxTokenLen {
		return Identity{}, errors.New("marker token too long")
	}
	for _, r := range token {
		if r != ' ' && (unicode.IsControl(r) || !unicode.IsGraphic(r)) {
			return Identity{}, errors.New("marker token contains non-printable characters")
		}
	}
	return Identity{id: token}, nil
}

// Generate returns a fresh identity. Tokens are random, so collisions across
// the archive's lifetime are negligible.
func Generate() Identity {
	return Identity{id: uuid.NewString()}
}

// Assigned reports whether the identity is set.
func (identity Identity) Assigned() bool {
	return identity.id != ""
}

// String returns the raw token, or the empty string for the zero Identity.
func (identity Identity) String() string {
	return identity.id
}

// Read returns the identity stored in `dir`'s marker file.
// A missing or empty marker means the directory has no identity, which is not
// an error. A marker that exists but doesn't parse is returned as an error so
// the caller can surface it; the directory should then be treated as
// unidentified rather than failing the run.
func Read(fs afero.Fs, dir string) (Identity, error) {
	path := markerPath(dir)

	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, nil
		}
		return Identity{}, errors.WithContext(err, "read marker")
	}

	// Only the first line is the token. Anything after it is ignored, which
	// keeps old markers readable if something appends to the file.
	line, _, _ := strings.Cut(string(contents), "\n")
	identity, err := Parse(line)
	if err != nil {
		return Identity{}, errors.WithContext(err, "parse marker")
	}
	return identity, nil
}

// Write stores `identity` in `dir`'s marker file, replacing any previous
// marker.
func Write(fs afero.Fs, dir string, identity Identity) error {
	if !identity.Assigned() {
		return errors.New("refusing to write an empty marker")
	}
	path := markerPath(dir)
	if err := afero.WriteFile(fs, path, []byte(identity.String()+"\n"), 0644); err != nil {
		return errors.WithContext(err, "write marker")
	}
	return nil
}

func markerPath(dir string) string {
	return filepath.Join(dir, Filename)
}
