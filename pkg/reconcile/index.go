package reconcile

import (
	"sort"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/scan"
)

// Index is the per-tree lookup structure the reconciler works against.
// Marked entries are reachable by identity; every entry is reachable by name.
// Within one tree an identity may appear on at most one directory. Entries
// violating that are quarantined: they stay visible (so lookups landing on
// them can be refused) but never participate in automatic actions.
type Index struct {
	byID   map[string]scan.Entry
	byName map[string]scan.Entry

	quarantinedIDs   map[string]bool
	quarantinedNames map[string]bool

	// Duplicates holds one record per identity that was claimed by more than
	// one directory in this tree.
	Duplicates []errors.DuplicateIdentityError
}

// BuildIndex indexes one tree's scan results. Duplicate identities don't fail
// the build; they are recorded in Duplicates and the offending entries are
// quarantined.
func BuildIndex(entries []scan.Entry) Index {
	index := Index{
		byID:             map[string]scan.Entry{},
		byName:           map[string]scan.Entry{},
		quarantinedIDs:   map[string]bool{},
		quarantinedNames: map[string]bool{},
	}

	claims := map[string][]scan.Entry{}
	for _, entry := range entries {
		index.byName[entry.Name] = entry
		if entry.Identity.Assigned() {
			claims[entry.Identity.String()] = append(claims[entry.Identity.String()], entry)
		}
	}

	var duplicateIDs []string
	for id, claimants := range claims {
		if len(claimants) == 1 {
			index.byID[id] = claimants[0]
			continue
		}
		duplicateIDs = append(duplicateIDs, id)
	}

	// Sort so the anomaly report is stable across runs.
	sort.Strings(duplicateIDs)
	for _, id := range duplicateIDs {
		var paths []string
		for _, entry := range claims[id] {
			paths = append(paths, entry.Path)
			index.quarantinedNames[entry.Name] = true
		}
		sort.Strings(paths)
		index.quarantinedIDs[id] = true
		index.Duplicates = append(index.Duplicates, errors.DuplicateIdentityError{
			ID:    id,
			Paths: paths,
		})
	}

	return index
}

// ByID looks up the entry carrying the given identity.
func (index Index) ByID(id string) (scan.Entry, bool) {
	entry, ok := index.byID[id]
	return entry, ok
}

// ByName looks up the entry with the given base name, marked or not.
func (index Index) ByName(name string) (scan.Entry, bool) {
	entry, ok := index.byName[name]
	return entry, ok
}

// IDQuarantined reports whether the identity was claimed by multiple
// directories in this tree.
func (index Index) IDQuarantined(id string) bool {
	return index.quarantinedIDs[id]
}

// NameQuarantined reports whether the named entry is one of the directories
// involved in a duplicate-identity violation.
func (index Index) NameQuarantined(name string) bool {
	return index.quarantinedNames[name]
}

func sortEntries(entries []scan.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
