package shared

import (
	"fmt"
	"strconv"
)

// FactionID is a value object identifying a faction taking part in the simulation
type FactionID struct {
	value int
}

// NewFactionID creates a new FactionID value object
func NewFactionID(id int) (FactionID, error) {
	if id <= 0 {
		return FactionID{}, fmt.Errorf("faction_id must be positive")
	}
	return FactionID{value: id}, nil
}

// MustNewFactionID creates a new FactionID value object, panicking if invalid
// Use this only when you're certain the ID is valid (e.g., from a snapshot)
func MustNewFactionID(id int) FactionID {
	factionID, err := NewFactionID(id)
	if err != nil {
		panic(err)
	}
	return factionID
}

// Value returns the integer value of the FactionID
func (f FactionID) Value() int {
	return f.value
}

// String returns a string representation of the FactionID
func (f FactionID) String() string {
	return strconv.Itoa(f.value)
}

// Equals checks if two FactionIDs are equal
func (f FactionID) Equals(other FactionID) bool {
	return f.value == other.value
}

// IsZero checks if the FactionID is the zero value (uninitialized)
func (f FactionID) IsZero() bool {
	return f.value == 0
}
