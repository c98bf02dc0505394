package events

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// EventType identifies a notification emitted by the production core
type EventType string

const (
	// Construction site lifecycle
	EventConstructionStarted   EventType = "CONSTRUCTION_STARTED"
	EventConstructionProgress  EventType = "CONSTRUCTION_PROGRESS"
	EventConstructionCompleted EventType = "CONSTRUCTION_COMPLETED"
	EventConstructionCancelled EventType = "CONSTRUCTION_CANCELLED"

	// Unit production
	EventProductionStarted   EventType = "PRODUCTION_STARTED"
	EventProductionProgress  EventType = "PRODUCTION_PROGRESS"
	EventProductionCompleted EventType = "PRODUCTION_COMPLETED"
	EventProductionDenied    EventType = "PRODUCTION_DENIED"
	EventProductionFailed    EventType = "PRODUCTION_FAILED"
	EventProductionRequeued  EventType = "PRODUCTION_REQUEUED"
	EventProductionCancelled EventType = "PRODUCTION_CANCELLED"

	// Overclock state machine
	EventOverclockStarted  EventType = "OVERCLOCK_STARTED"
	EventOverclockStopped  EventType = "OVERCLOCK_STOPPED"
	EventHeatWarning       EventType = "HEAT_WARNING"
	EventMeltdownStarted   EventType = "MELTDOWN_STARTED"
	EventMeltdownRecovered EventType = "MELTDOWN_RECOVERED"

	// Factory lifecycle
	EventFactoryCreated   EventType = "FACTORY_CREATED"
	EventFactoryDestroyed EventType = "FACTORY_DESTROYED"
	EventFactoryUpgraded  EventType = "FACTORY_UPGRADED"

	// Faction lifecycle
	EventFactionEliminated EventType = "FACTION_ELIMINATED"
)

// String returns the string representation of the EventType
func (t EventType) String() string {
	return string(t)
}

// Event is a single notification. Fields that do not apply to a given type are zero.
type Event struct {
	Type          EventType
	FactionID     shared.FactionID
	FactoryID     int64
	SiteID        int64
	JobID         int64
	UnitType      string
	TransactionID string
	Requested     float64 // denial: amount requested
	Available     float64 // denial: amount available
	Value         float64 // progress fraction, heat, upgrade level, spawned unit id
	Reason        string
	Position      shared.Vector3
}

// String provides human-readable representation
func (e Event) String() string {
	return fmt.Sprintf("Event[%s, faction=%s, factory=%d, site=%d, job=%d, unit=%s, value=%.2f, reason=%q]",
		e.Type, e.FactionID, e.FactoryID, e.SiteID, e.JobID, e.UnitType, e.Value, e.Reason)
}

// Publisher receives events from domain components
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(Event) {}

// OrNop returns p, or a publisher that discards events when p is nil
func OrNop(p Publisher) Publisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}
