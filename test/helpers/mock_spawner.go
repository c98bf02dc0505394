package helpers

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// MockSpawner is a test double for the UnitSpawner interface.
// It fails for unit types listed in FailFor and records every attempt.
type MockSpawner struct {
	FailFor  map[string]bool
	Attempts []string
	nextID   int64
}

// NewMockSpawner creates a spawner that succeeds for every unit type
func NewMockSpawner() *MockSpawner {
	return &MockSpawner{FailFor: make(map[string]bool)}
}

// Spawn implements the UnitSpawner interface
func (m *MockSpawner) Spawn(unitType string, factionID shared.FactionID, position shared.Vector3) (int64, error) {
	m.Attempts = append(m.Attempts, fmt.Sprintf("%s:%s", factionID, unitType))
	if m.FailFor[unitType] {
		return 0, fmt.Errorf("no spawn point for %s", unitType)
	}
	m.nextID++
	return m.nextID, nil
}
