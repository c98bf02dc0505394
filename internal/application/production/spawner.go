package production

import (
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// UnitSpawner places a finished unit into the world and returns its id
type UnitSpawner interface {
	Spawn(unitType string, factionID shared.FactionID, position shared.Vector3) (int64, error)
}

// SpawnedUnit records one unit handed out by a SequentialSpawner
type SpawnedUnit struct {
	UnitID    int64
	UnitType  string
	FactionID shared.FactionID
	Position  shared.Vector3
}

// SequentialSpawner is the headless spawner: it hands out increasing unit ids
// and remembers what it spawned.
type SequentialSpawner struct {
	nextID  int64
	spawned []SpawnedUnit
}

func NewSequentialSpawner() *SequentialSpawner {
	return &SequentialSpawner{nextID: 1}
}

func (s *SequentialSpawner) Spawn(unitType string, factionID shared.FactionID, position shared.Vector3) (int64, error) {
	id := s.nextID
	s.nextID++
	s.spawned = append(s.spawned, SpawnedUnit{UnitID: id, UnitType: unitType, FactionID: factionID, Position: position})
	return id, nil
}

// Spawned returns every unit spawned so far, oldest first
func (s *SequentialSpawner) Spawned() []SpawnedUnit {
	out := make([]SpawnedUnit, len(s.spawned))
	copy(out, s.spawned)
	return out
}
