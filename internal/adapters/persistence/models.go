package persistence

import (
	"time"
)

// SaveSlotModel represents the save_slots table
type SaveSlotModel struct {
	ID             int       `gorm:"column:id;primaryKey;autoIncrement"`
	Slot           string    `gorm:"column:slot;uniqueIndex;not null"`
	Version        int       `gorm:"column:version;not null"`
	ElapsedSeconds float64   `gorm:"column:elapsed_seconds;not null"`
	Factories      int       `gorm:"column:factories;not null"`
	PendingCount   int       `gorm:"column:pending_count;not null"`
	State          string    `gorm:"column:state;type:text;not null"` // JSON stored as string
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (SaveSlotModel) TableName() string {
	return "save_slots"
}

// ProductionEventModel represents the production_events table
type ProductionEventModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Slot          string    `gorm:"column:slot;index:idx_event_slot_seq;not null"`
	Sequence      int64     `gorm:"column:sequence;index:idx_event_slot_seq;not null"`
	EventType     string    `gorm:"column:event_type;index;not null"`
	FactionID     int       `gorm:"column:faction_id"`
	FactoryID     int64     `gorm:"column:factory_id"`
	SiteID        int64     `gorm:"column:site_id"`
	JobID         int64     `gorm:"column:job_id"`
	UnitType      string    `gorm:"column:unit_type"`
	TransactionID string    `gorm:"column:transaction_id"`
	Value         float64   `gorm:"column:value"`
	Requested     float64   `gorm:"column:requested"`
	Available     float64   `gorm:"column:available"`
	Reason        string    `gorm:"column:reason"`
	SimulatedAt   time.Time `gorm:"column:simulated_at;not null"`
}

func (ProductionEventModel) TableName() string {
	return "production_events"
}
