// Package report collects and presents the anomalies of a reconciliation
// run: directories that couldn't be synced and why.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/reconcile"
	"github.com/alugowski/archive-workdir/pkg/scan"
)

// Category classifies an anomaly.
type Category string

const (
	CategoryAmbiguous         Category = "AMBIGUOUS"
	CategoryUnsyncedNew       Category = "UNSYNCED_NEW"
	CategoryUnsyncedMissing   Category = "UNSYNCED_MISSING"
	CategoryDuplicateIdentity Category = "DUPLICATE_IDENTITY"
)

// Anomaly is one reportable condition observed during a run.
type Anomaly struct {
	Category Category
	Paths    []string
	Reason   string
	Time     time.Time
}

// Mocked out for unit testing.
var (
	stderr io.Writer       = os.Stderr
	clock  clockwork.Clock = clockwork.NewRealClock()
)

// Collector accumulates anomalies in the order they are observed.
type Collector struct {
	anomalies []Anomaly
}

// Add records one anomaly.
func (collector *Collector) Add(category Category, reason string, paths ...string) {
	collector.anomalies = append(collector.anomalies, Anomaly{
		Category: category,
		Paths:    paths,
		Reason:   reason,
		Time:     clock.Now(),
	})
}

// AddDuplicates records one DUPLICATE_IDENTITY anomaly per violation.
func (collector *Collector) AddDuplicates(duplicates []errors.DuplicateIdentityError) {
	for _, dup := range duplicates {
		collector.Add(CategoryDuplicateIdentity, dup.Error(), dup.Paths...)
	}
}

// AddMalformedMarkers records marker files that couldn't be parsed. They
// share the AMBIGUOUS category: the directory's identity can't be trusted
// until an operator repairs the marker.
func (collector *Collector) AddMalformedMarkers(malformed []scan.MalformedMarker) {
	for _, m := range malformed {
		collector.Add(CategoryAmbiguous, m.Reason, m.Path)
	}
}

// AddPairing records the anomaly for a non-mutating pairing. Mutating
// pairings are not anomalies and are ignored.
func (collector *Collector) AddPairing(pairing reconcile.Pairing) {
	var category Category
	switch pairing.Action {
	case reconcile.ActionAmbiguous:
		category = CategoryAmbiguous
	case reconcile.ActionUnsyncedNew:
		category = CategoryUnsyncedNew
	case reconcile.ActionUnsyncedMissing:
		category = CategoryUnsyncedMissing
	default:
		return
	}

	paths := []string{pairing.Work.Path}
	if pairing.Archive != nil {
		paths = append(paths, pairing.Archive.Path)
	}
	collector.Add(category, pairing.Reason, paths...)
}

// Anomalies returns the collected anomalies in observation order.
func (collector *Collector) Anomalies() []Anomaly {
	return collector.anomalies
}

// Empty reports whether anything was collected.
func (collector *Collector) Empty() bool {
	return len(collector.anomalies) == 0
}

// Print writes a human-readable summary block to stderr, in the same spirit
// as the per-directory action lines the run logs to stdout. Cron pipes stderr
// into mail, so this block is what an operator actually sees.
func (collector *Collector) Print(workRoot, archiveRoot string) {
	if collector.Empty() {
		return
	}

	fmt.Fprintf(stderr, "\nUnsynchronized directories while archiving from %q to %q:\n",
		workRoot, archiveRoot)
	for _, anomaly := range collector.anomalies {
		for _, path := range anomaly.Paths {
			fmt.Fprintf(stderr, "  %-18s %s", anomaly.Category, path)
			if anomaly.Reason != "" {
				fmt.Fprintf(stderr, " (%s)", anomaly.Reason)
			}
			fmt.Fprintln(stderr)
		}
		log.WithFields(log.Fields{
			"category": anomaly.Category,
			"paths":    anomaly.Paths,
			"time":     anomaly.Time,
		}).Debug("Anomaly")
	}
}
