package catalog

import (
	"fmt"
	"strings"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// FactoryType represents the production line a factory runs
type FactoryType string

const (
	// FactoryTypeCombat builds fighting units
	FactoryTypeCombat FactoryType = "COMBAT"

	// FactoryTypeHarvester builds resource gatherers
	FactoryTypeHarvester FactoryType = "HARVESTER"

	// FactoryTypeSupport builds builders, medics and scouts
	FactoryTypeSupport FactoryType = "SUPPORT"
)

// AllFactoryTypes returns all valid factory types
func AllFactoryTypes() []FactoryType {
	return []FactoryType{FactoryTypeCombat, FactoryTypeHarvester, FactoryTypeSupport}
}

// IsValid checks if the factory type is valid
func (t FactoryType) IsValid() bool {
	for _, valid := range AllFactoryTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the FactoryType
func (t FactoryType) String() string {
	return string(t)
}

// ParseFactoryType parses a string into a FactoryType
func ParseFactoryType(s string) (FactoryType, error) {
	t := FactoryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid factory type: %s", s)
	}
	return t, nil
}

// UnitCost is the immutable cost and build-time record for one unit type.
// Jobs copy it at queue time; nothing can change a job's cost afterwards.
type UnitCost struct {
	unitType       string
	reeCost        float64
	powerCost      float64 // per second while the job is IN_PROGRESS
	productionTime float64 // seconds at speed 1.0
	producedBy     FactoryType
}

// NewUnitCost creates a cost record with validation
func NewUnitCost(unitType string, reeCost, powerCost, productionTime float64, producedBy FactoryType) (UnitCost, error) {
	if unitType == "" {
		return UnitCost{}, shared.NewValidationError("unit_type", "cannot be empty")
	}
	if reeCost < 0 {
		return UnitCost{}, shared.NewValidationError("ree_cost", "cannot be negative")
	}
	if powerCost < 0 {
		return UnitCost{}, shared.NewValidationError("power_cost", "cannot be negative")
	}
	if productionTime <= 0 {
		return UnitCost{}, shared.NewValidationError("production_time", "must be positive")
	}
	if !producedBy.IsValid() {
		return UnitCost{}, shared.NewValidationError("produced_by", fmt.Sprintf("invalid factory type: %s", producedBy))
	}

	return UnitCost{
		unitType:       unitType,
		reeCost:        reeCost,
		powerCost:      powerCost,
		productionTime: productionTime,
		producedBy:     producedBy,
	}, nil
}

// MustNewUnitCost creates a cost record, panicking if invalid
func MustNewUnitCost(unitType string, reeCost, powerCost, productionTime float64, producedBy FactoryType) UnitCost {
	c, err := NewUnitCost(unitType, reeCost, powerCost, productionTime, producedBy)
	if err != nil {
		panic(err)
	}
	return c
}

func (c UnitCost) UnitType() string        { return c.unitType }
func (c UnitCost) REECost() float64        { return c.reeCost }
func (c UnitCost) PowerCost() float64      { return c.powerCost }
func (c UnitCost) ProductionTime() float64 { return c.productionTime }
func (c UnitCost) ProducedBy() FactoryType { return c.producedBy }
func (c UnitCost) IsZero() bool            { return c.unitType == "" }

// WithREECost returns a copy priced at ree
func (c UnitCost) WithREECost(ree float64) UnitCost {
	c.reeCost = ree
	return c
}

// String provides human-readable representation
func (c UnitCost) String() string {
	return fmt.Sprintf("UnitCost[%s, ree=%.0f, power=%.1f/s, time=%.1fs, by=%s]",
		c.unitType, c.reeCost, c.powerCost, c.productionTime, c.producedBy)
}
