package ledger

import (
	"time"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// DefaultFailureHistorySize bounds the per-faction failure ring buffer
const DefaultFailureHistorySize = 100

// FailureRecord describes one denied production attempt
type FailureRecord struct {
	UnitType  string
	Requested float64
	Available float64
	Reason    string
	Timestamp time.Time
}

// FactionAnalytics is observability-only production accounting for one faction
type FactionAnalytics struct {
	UnitsProduced  int
	REESpent       float64
	FailedAttempts int
	failures       []FailureRecord
	head           int // index of the oldest record once the buffer is full
}

// Failures returns the retained failure records, oldest first
func (a *FactionAnalytics) Failures() []FailureRecord {
	out := make([]FailureRecord, 0, len(a.failures))
	out = append(out, a.failures[a.head:]...)
	out = append(out, a.failures[:a.head]...)
	return out
}

func (a *FactionAnalytics) recordSuccess(cost float64) {
	a.UnitsProduced++
	a.REESpent += cost
}

func (a *FactionAnalytics) recordFailure(rec FailureRecord, capacity int) {
	a.FailedAttempts++
	if capacity <= 0 {
		return
	}
	if len(a.failures) < capacity {
		a.failures = append(a.failures, rec)
		return
	}
	a.failures[a.head] = rec
	a.head = (a.head + 1) % capacity
}

func (a *FactionAnalytics) clone() FactionAnalytics {
	c := *a
	c.failures = a.Failures()
	c.head = 0
	return c
}

func (a *FactionAnalytics) toMap(factionID shared.FactionID) map[string]any {
	failures := make([]map[string]any, 0, len(a.failures))
	for _, f := range a.Failures() {
		failures = append(failures, map[string]any{
			"unit_type": f.UnitType,
			"requested": f.Requested,
			"available": f.Available,
			"reason":    f.Reason,
			"timestamp": f.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return map[string]any{
		"faction_id":      factionID.Value(),
		"units_produced":  a.UnitsProduced,
		"ree_spent":       a.REESpent,
		"failed_attempts": a.FailedAttempts,
		"failures":        failures,
	}
}

func analyticsFromMap(m map[string]any) (shared.FactionID, *FactionAnalytics, error) {
	r := shared.NewStateReader(m)
	id := r.Int("faction_id")
	a := &FactionAnalytics{
		UnitsProduced:  r.Int("units_produced"),
		REESpent:       r.Float("ree_spent"),
		FailedAttempts: r.Int("failed_attempts"),
	}
	failureMaps := r.Maps("failures")
	if err := r.Err(); err != nil {
		return shared.FactionID{}, nil, err
	}
	faction, err := shared.NewFactionID(id)
	if err != nil {
		return shared.FactionID{}, nil, err
	}
	for _, fm := range failureMaps {
		fr := shared.NewStateReader(fm)
		rec := FailureRecord{
			UnitType:  fr.String("unit_type"),
			Requested: fr.Float("requested"),
			Available: fr.Float("available"),
			Reason:    fr.String("reason"),
		}
		stamp := fr.String("timestamp")
		if err := fr.Err(); err != nil {
			return shared.FactionID{}, nil, err
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return shared.FactionID{}, nil, err
		}
		a.failures = append(a.failures, rec)
	}
	return faction, a, nil
}
