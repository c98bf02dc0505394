package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

const journalBatchSize = 200

// EventJournal buffers production events in memory and appends them to the
// production_events table on Flush. It is a bus subscriber.
type EventJournal struct {
	db       *gorm.DB
	slot     string
	clock    shared.Clock
	buffer   []ProductionEventModel
	sequence int64
}

// NewEventJournal journals events under slot, stamped with clock
func NewEventJournal(db *gorm.DB, slot string, clock shared.Clock) *EventJournal {
	return &EventJournal{db: db, slot: slot, clock: clock}
}

// Resume continues numbering after the highest sequence already stored for the slot
func (j *EventJournal) Resume(ctx context.Context) error {
	var last int64
	err := j.db.WithContext(ctx).Model(&ProductionEventModel{}).
		Where("slot = ?", j.slot).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return fmt.Errorf("failed to resume journal for %s: %w", j.slot, err)
	}
	j.sequence = last
	return nil
}

// Publish buffers one event
func (j *EventJournal) Publish(e events.Event) {
	j.sequence++
	j.buffer = append(j.buffer, ProductionEventModel{
		Slot:          j.slot,
		Sequence:      j.sequence,
		EventType:     string(e.Type),
		FactionID:     e.FactionID.Value(),
		FactoryID:     e.FactoryID,
		SiteID:        e.SiteID,
		JobID:         e.JobID,
		UnitType:      e.UnitType,
		TransactionID: e.TransactionID,
		Value:         e.Value,
		Requested:     e.Requested,
		Available:     e.Available,
		Reason:        e.Reason,
		SimulatedAt:   j.clock.Now(),
	})
}

// Pending is the number of buffered, unwritten events
func (j *EventJournal) Pending() int {
	return len(j.buffer)
}

// Flush writes buffered events; on failure the buffer is kept for a retry
func (j *EventJournal) Flush(ctx context.Context) error {
	if len(j.buffer) == 0 {
		return nil
	}
	if err := j.db.WithContext(ctx).CreateInBatches(j.buffer, journalBatchSize).Error; err != nil {
		return fmt.Errorf("failed to journal %d events: %w", len(j.buffer), err)
	}
	j.buffer = j.buffer[:0]
	return nil
}

// Replay returns the journaled events of slot in publication order
func Replay(ctx context.Context, db *gorm.DB, slot string) ([]events.Event, error) {
	var models []ProductionEventModel
	result := db.WithContext(ctx).Where("slot = ?", slot).Order("sequence").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to read journal for %s: %w", slot, result.Error)
	}

	out := make([]events.Event, 0, len(models))
	for _, m := range models {
		e := events.Event{
			Type:          events.EventType(m.EventType),
			FactoryID:     m.FactoryID,
			SiteID:        m.SiteID,
			JobID:         m.JobID,
			UnitType:      m.UnitType,
			TransactionID: m.TransactionID,
			Value:         m.Value,
			Requested:     m.Requested,
			Available:     m.Available,
			Reason:        m.Reason,
		}
		if m.FactionID != 0 {
			faction, err := shared.NewFactionID(m.FactionID)
			if err != nil {
				return nil, err
			}
			e.FactionID = faction
		}
		out = append(out, e)
	}
	return out, nil
}

// TruncateJournal removes every journaled event of slot
func TruncateJournal(ctx context.Context, db *gorm.DB, slot string) error {
	if err := db.WithContext(ctx).Where("slot = ?", slot).Delete(&ProductionEventModel{}).Error; err != nil {
		return fmt.Errorf("failed to truncate journal for %s: %w", slot, err)
	}
	return nil
}
