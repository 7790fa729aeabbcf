// Package reconcile decides, for every subdirectory of the working tree,
// what (if anything) should happen to its counterpart in the archive tree.
//
// The decision step is pure: it consumes the two tree indexes and produces a
// plan of typed actions. Applying the plan goes through an injected Executor,
// so the decision logic is testable entirely in memory.
//
// The archive is allowed to be a strict superset of the working tree. Archive
// directories with no working counterpart are never touched.
package reconcile

import (
	log "github.com/sirupsen/logrus"

	"github.com/alugowski/archive-workdir/pkg/scan"
)

// Action is the decided fate of one working-tree subdirectory.
type Action int

const (
	// ActionSync mirrors into an identity-matched archive counterpart,
	// renaming the counterpart first if the working directory was renamed.
	ActionSync Action = iota

	// ActionSyncAndAssign mirrors into a name-matched, never-tracked archive
	// counterpart and then stamps one fresh identity into both copies.
	ActionSyncAndAssign

	// ActionCreateAndAssign mirrors into a freshly created archive
	// counterpart and stamps one fresh identity into both copies.
	ActionCreateAndAssign

	// ActionAmbiguous means the archive slot this entry maps to belongs to
	// something else (name collision with a differently-identified archive
	// directory, or a quarantined duplicate). Nothing is touched.
	ActionAmbiguous

	// ActionUnsyncedNew means the working directory is new to the archive and
	// auto-syncing of new directories is disabled. Nothing is touched.
	ActionUnsyncedNew

	// ActionUnsyncedMissing means the working directory carries an identity
	// that no archive directory carries. The archive copy was deleted or
	// corrupted; recreating it silently would discard the rename-tracking
	// relationship, so nothing is touched.
	ActionUnsyncedMissing
)

func (action Action) String() string {
	switch action {
	case ActionSync:
		return "SYNC"
	case ActionSyncAndAssign:
		return "SYNC_AND_ASSIGN"
	case ActionCreateAndAssign:
		return "CREATE_AND_ASSIGN"
	case ActionAmbiguous:
		return "AMBIGUOUS"
	case ActionUnsyncedNew:
		return "UNSYNCED_NEW"
	case ActionUnsyncedMissing:
		return "UNSYNCED_MISSING"
	}
	return "UNKNOWN"
}

// Mutates reports whether the action writes to either tree.
func (action Action) Mutates() bool {
	switch action {
	case ActionSync, ActionSyncAndAssign, ActionCreateAndAssign:
		return true
	}
	return false
}

// Pairing is the decided correspondence between one working entry and at most
// one archive entry.
type Pairing struct {
	Work scan.Entry

	// Archive is the matched archive entry. Nil when no counterpart exists
	// (ActionCreateAndAssign, ActionUnsyncedNew, ActionUnsyncedMissing) or
	// when the match was refused (some ActionAmbiguous cases).
	Archive *scan.Entry

	Action Action

	// Reason is a short operator-facing explanation for non-mutating actions.
	Reason string
}

// Plan is the ordered output of one reconciliation pass.
type Plan struct {
	// ArchiveRoot is where ActionCreateAndAssign pairings materialize their
	// counterpart.
	ArchiveRoot string

	Pairings []Pairing
}

// Options are the policy knobs of a pass.
type Options struct {
	// AutoSyncNew mirrors working directories that have no archive
	// counterpart of any kind, instead of reporting them.
	AutoSyncNew bool
}

// Reconcile pairs every working entry with its archive counterpart and
// decides the action to apply. Entries are processed independently; identity
// lookups are exact-key and each identity appears at most once per tree, so
// processing order can't change the outcome.
func Reconcile(work, archive Index, archiveRoot string, opts Options) Plan {
	plan := Plan{ArchiveRoot: archiveRoot}

	for _, w := range work.entriesByName() {
		if w.Identity.Assigned() && work.IDQuarantined(w.Identity.String()) {
			// Covered by the working tree's DUPLICATE_IDENTITY anomaly; the
			// entry sits this run out entirely.
			log.WithField("dir", w.Name).Debug(
				"Holding directory with duplicated identity out of the plan")
			continue
		}
		plan.Pairings = append(plan.Pairings, decide(w, archive, opts))
	}
	return plan
}

func decide(w scan.Entry, archive Index, opts Options) Pairing {
	if w.Identity.Assigned() {
		return decideByIdentity(w, archive)
	}
	return decideByName(w, archive, opts)
}

// decideByIdentity handles working entries that already carry a marker.
// An established identity is the preferred match: it survives renames on
// either side, so name lookups are never consulted for these entries.
func decideByIdentity(w scan.Entry, archive Index) Pairing {
	id := w.Identity.String()

	if a, ok := archive.ByID(id); ok {
		return Pairing{Work: w, Archive: &a, Action: ActionSync}
	}

	if archive.IDQuarantined(id) {
		return Pairing{
			Work:   w,
			Action: ActionAmbiguous,
			Reason: "identity is claimed by multiple archive directories",
		}
	}

	return Pairing{
		Work:   w,
		Action: ActionUnsyncedMissing,
		Reason: "marked, but no archive directory carries this identity",
	}
}

// decideByName handles working entries that have never been tracked.
func decideByName(w scan.Entry, archive Index, opts Options) Pairing {
	if archive.NameQuarantined(w.Name) {
		return Pairing{
			Work:   w,
			Action: ActionAmbiguous,
			Reason: "archive directory of this name has a duplicated identity",
		}
	}

	if a, ok := archive.ByName(w.Name); ok {
		if a.Identity.Assigned() {
			// The archive slot belongs to some other, differently-identified
			// working directory that happens to share the name.
			return Pairing{
				Work:    w,
				Archive: &a,
				Action:  ActionAmbiguous,
				Reason:  "archive directory of this name belongs to a different identity",
			}
		}

		// First sync of a pre-existing, never-tracked pair.
		return Pairing{Work: w, Archive: &a, Action: ActionSyncAndAssign}
	}

	if opts.AutoSyncNew {
		return Pairing{Work: w, Action: ActionCreateAndAssign}
	}

	return Pairing{
		Work:   w,
		Action: ActionUnsyncedNew,
		Reason: "new directory; not auto-syncing new directories",
	}
}

// entriesByName returns the indexed entries sorted by name. The plan's order
// doesn't affect its contents, but stable ordering makes logs and reports
// comparable between runs.
func (index Index) entriesByName() []scan.Entry {
	var entries []scan.Entry
	for _, entry := range index.byName {
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries
}
