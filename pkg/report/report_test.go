package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/alugowski/archive-workdir/pkg/errors"
	"github.com/alugowski/archive-workdir/pkg/reconcile"
	"github.com/alugowski/archive-workdir/pkg/scan"
)

func TestCollector(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC))
	clock = fakeClock

	collector := &Collector{}
	assert.True(t, collector.Empty())

	collector.AddPairing(reconcile.Pairing{
		Work:   scan.Entry{Name: "fresh", Path: "/work/fresh"},
		Action: reconcile.ActionUnsyncedNew,
		Reason: "new directory; not auto-syncing new directories",
	})
	fakeClock.Advance(time.Minute)
	collector.AddDuplicates([]errors.DuplicateIdentityError{
		{ID: "shared", Paths: []string{"/archive/a", "/archive/b"}},
	})

	// Mutating pairings are not anomalies.
	collector.AddPairing(reconcile.Pairing{
		Work:   scan.Entry{Name: "ok", Path: "/work/ok"},
		Action: reconcile.ActionSync,
	})

	anomalies := collector.Anomalies()
	assert.False(t, collector.Empty())
	assert.Equal(t, []Anomaly{
		{
			Category: CategoryUnsyncedNew,
			Paths:    []string{"/work/fresh"},
			Reason:   "new directory; not auto-syncing new directories",
			Time:     time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC),
		},
		{
			Category: CategoryDuplicateIdentity,
			Paths:    []string{"/archive/a", "/archive/b"},
			Reason:   `identity "shared" is claimed by multiple directories: /archive/a, /archive/b`,
			Time:     time.Date(2024, 5, 17, 10, 1, 0, 0, time.UTC),
		},
	}, anomalies)
}

func TestCollectorCategories(t *testing.T) {
	tests := []struct {
		name   string
		action reconcile.Action
		exp    Category
	}{
		{name: "Ambiguous", action: reconcile.ActionAmbiguous, exp: CategoryAmbiguous},
		{name: "UnsyncedNew", action: reconcile.ActionUnsyncedNew, exp: CategoryUnsyncedNew},
		{name: "UnsyncedMissing", action: reconcile.ActionUnsyncedMissing, exp: CategoryUnsyncedMissing},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			collector := &Collector{}
			collector.AddPairing(reconcile.Pairing{
				Work:   scan.Entry{Name: "dir", Path: "/work/dir"},
				Action: test.action,
			})
			assert.Len(t, collector.Anomalies(), 1)
			assert.Equal(t, test.exp, collector.Anomalies()[0].Category)
		})
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	stderr = &buf

	collector := &Collector{}
	collector.AddMalformedMarkers([]scan.MalformedMarker{
		{Path: "/work/broken", Reason: "parse marker: marker token contains non-printable characters"},
	})
	collector.Print("/work", "/archive")

	out := buf.String()
	assert.Contains(t, out, `archiving from "/work" to "/archive"`)
	assert.Contains(t, out, "AMBIGUOUS")
	assert.Contains(t, out, "/work/broken")
}

func TestPrintEmpty(t *testing.T) {
	var buf bytes.Buffer
	stderr = &buf

	collector := &Collector{}
	collector.Print("/work", "/archive")
	assert.Empty(t, buf.String())
}
