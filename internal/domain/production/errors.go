package production

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
)

// ErrInvalidJobTransition indicates an invalid job state transition
type ErrInvalidJobTransition struct {
	JobID       JobID
	From        JobState
	To          JobState
	Description string
}

func (e *ErrInvalidJobTransition) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("invalid job transition for %d: %s -> %s: %s",
			e.JobID, e.From, e.To, e.Description)
	}
	return fmt.Sprintf("invalid job transition for %d: %s -> %s",
		e.JobID, e.From, e.To)
}

// ErrQueueFull indicates the production queue is at capacity
type ErrQueueFull struct {
	Capacity int
}

func (e *ErrQueueFull) Error() string {
	return fmt.Sprintf("production queue full (capacity %d)", e.Capacity)
}

// ErrJobNotFound indicates a job is not in the queue
type ErrJobNotFound struct {
	JobID JobID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %d", e.JobID)
}

// ErrUnitNotProduceable indicates a factory type cannot build the unit type
type ErrUnitNotProduceable struct {
	UnitType    string
	FactoryType catalog.FactoryType
}

func (e *ErrUnitNotProduceable) Error() string {
	return fmt.Sprintf("%s factory cannot produce %s", e.FactoryType, e.UnitType)
}

// ErrUnknownUnitType indicates the unit type is absent from the cost table
type ErrUnknownUnitType struct {
	UnitType string
}

func (e *ErrUnknownUnitType) Error() string {
	return fmt.Sprintf("unknown unit type: %s", e.UnitType)
}

// ErrFactoryDestroyed indicates an operation on a destroyed factory
type ErrFactoryDestroyed struct {
	FactoryID FactoryID
}

func (e *ErrFactoryDestroyed) Error() string {
	return fmt.Sprintf("factory %d is destroyed", e.FactoryID)
}

// ErrMaxUpgradeLevel indicates the factory cannot be upgraded further
type ErrMaxUpgradeLevel struct {
	FactoryID FactoryID
	Level     int
}

func (e *ErrMaxUpgradeLevel) Error() string {
	return fmt.Sprintf("factory %d already at max upgrade level %d", e.FactoryID, e.Level)
}

// ErrInvalidOverclock indicates an overclock target that cannot be applied
type ErrInvalidOverclock struct {
	Target float64
	State  OverclockState
	Reason string
}

func (e *ErrInvalidOverclock) Error() string {
	return fmt.Sprintf("cannot set overclock target %.2f in state %s: %s", e.Target, e.State, e.Reason)
}
