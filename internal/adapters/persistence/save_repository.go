package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSaveSlotNotFound indicates no save exists under the slot name
type ErrSaveSlotNotFound struct {
	Slot string
}

func (e *ErrSaveSlotNotFound) Error() string {
	return fmt.Sprintf("save slot not found: %s", e.Slot)
}

// SaveSlotSummary describes a stored save without decoding its state
type SaveSlotSummary struct {
	Slot           string
	Version        int
	ElapsedSeconds float64
	Factories      int
	PendingCount   int
	UpdatedAt      time.Time
}

// GormSaveRepository stores world snapshots as JSON documents, one row per slot
type GormSaveRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSaveRepository creates a new GORM save repository
func NewGormSaveRepository(db *gorm.DB) *GormSaveRepository {
	return &GormSaveRepository{db: db, now: time.Now}
}

// Save writes a snapshot into slot, replacing any previous save there
func (r *GormSaveRepository) Save(ctx context.Context, slot string, snapshot map[string]any) error {
	if slot == "" {
		return fmt.Errorf("save slot name is required")
	}
	state, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	model := snapshotToModel(slot, snapshot, string(state), r.now())
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "elapsed_seconds", "factories", "pending_count", "state", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, result.Error)
	}
	return nil
}

// Load returns the decoded snapshot stored in slot
func (r *GormSaveRepository) Load(ctx context.Context, slot string) (map[string]any, error) {
	var model SaveSlotModel
	result := r.db.WithContext(ctx).Where("slot = ?", slot).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &ErrSaveSlotNotFound{Slot: slot}
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, result.Error)
	}

	var snapshot map[string]any
	if err := json.Unmarshal([]byte(model.State), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode slot %s: %w", slot, err)
	}
	return snapshot, nil
}

// List returns every save ordered by most recent update
func (r *GormSaveRepository) List(ctx context.Context) ([]SaveSlotSummary, error) {
	var models []SaveSlotModel
	result := r.db.WithContext(ctx).
		Select("slot", "version", "elapsed_seconds", "factories", "pending_count", "updated_at").
		Order("updated_at DESC").Order("slot").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list saves: %w", result.Error)
	}

	summaries := make([]SaveSlotSummary, 0, len(models))
	for _, m := range models {
		summaries = append(summaries, SaveSlotSummary{
			Slot:           m.Slot,
			Version:        m.Version,
			ElapsedSeconds: m.ElapsedSeconds,
			Factories:      m.Factories,
			PendingCount:   m.PendingCount,
			UpdatedAt:      m.UpdatedAt,
		})
	}
	return summaries, nil
}

// Delete removes a save; deleting a missing slot is an error
func (r *GormSaveRepository) Delete(ctx context.Context, slot string) error {
	result := r.db.WithContext(ctx).Where("slot = ?", slot).Delete(&SaveSlotModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, result.Error)
	}
	if result.RowsAffected == 0 {
		return &ErrSaveSlotNotFound{Slot: slot}
	}
	return nil
}

// snapshotToModel lifts a few summary columns out of the snapshot so saves can
// be listed without decoding every document.
func snapshotToModel(slot string, snapshot map[string]any, state string, now time.Time) *SaveSlotModel {
	model := &SaveSlotModel{
		Slot:      slot,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if v, ok := snapshot["version"].(int); ok {
		model.Version = v
	}
	if v, ok := snapshot["elapsed"].(float64); ok {
		model.ElapsedSeconds = v
	}
	if manager, ok := snapshot["manager"].(map[string]any); ok {
		if factories, ok := manager["factories"].([]map[string]any); ok {
			model.Factories = len(factories)
		}
	}
	if validator, ok := snapshot["validator"].(map[string]any); ok {
		if pending, ok := validator["pending"].([]map[string]any); ok {
			model.PendingCount = len(pending)
		}
	}
	return model
}
