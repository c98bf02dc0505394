package shared

import (
	"fmt"
	"time"
)

// LifecycleStatus represents the state of an entity in its lifecycle
type LifecycleStatus string

const (
	// LifecycleStatusPending indicates the entity exists but has not started
	LifecycleStatusPending LifecycleStatus = "PENDING"

	// LifecycleStatusRunning indicates the entity is progressing
	LifecycleStatusRunning LifecycleStatus = "RUNNING"

	// LifecycleStatusCompleted indicates the entity finished successfully
	LifecycleStatusCompleted LifecycleStatus = "COMPLETED"

	// LifecycleStatusStopped indicates the entity was abandoned before finishing
	LifecycleStatusStopped LifecycleStatus = "STOPPED"
)

// IsValid checks if the status is one of the defined constants
func (s LifecycleStatus) IsValid() bool {
	switch s {
	case LifecycleStatusPending, LifecycleStatusRunning, LifecycleStatusCompleted, LifecycleStatusStopped:
		return true
	}
	return false
}

// LifecycleStateMachine manages PENDING -> RUNNING -> COMPLETED | STOPPED for
// entities composed with it (construction sites).
//
// Invariants:
// - COMPLETED and STOPPED are terminal
// - Timestamps come from the injected clock
type LifecycleStateMachine struct {
	status    LifecycleStatus
	startedAt *time.Time
	stoppedAt *time.Time
	clock     Clock
}

// NewLifecycleStateMachine creates a new lifecycle state machine in PENDING state
func NewLifecycleStateMachine(clock Clock) *LifecycleStateMachine {
	if clock == nil {
		clock = NewRealClock()
	}
	return &LifecycleStateMachine{
		status: LifecycleStatusPending,
		clock:  clock,
	}
}

func (sm *LifecycleStateMachine) Status() LifecycleStatus { return sm.status }
func (sm *LifecycleStateMachine) StartedAt() *time.Time   { return sm.startedAt }
func (sm *LifecycleStateMachine) StoppedAt() *time.Time   { return sm.stoppedAt }

// Start transitions from PENDING to RUNNING state
func (sm *LifecycleStateMachine) Start() error {
	if sm.status != LifecycleStatusPending {
		return fmt.Errorf("cannot start from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusRunning
	sm.startedAt = &now
	return nil
}

// Complete transitions from RUNNING to COMPLETED state
func (sm *LifecycleStateMachine) Complete() error {
	if sm.status != LifecycleStatusRunning {
		return fmt.Errorf("cannot complete from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusCompleted
	sm.stoppedAt = &now
	return nil
}

// Stop transitions any non-terminal state to STOPPED
func (sm *LifecycleStateMachine) Stop() error {
	if sm.IsFinished() {
		return fmt.Errorf("cannot stop from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusStopped
	sm.stoppedAt = &now
	return nil
}

// IsRunning returns true if the entity is currently progressing
func (sm *LifecycleStateMachine) IsRunning() bool {
	return sm.status == LifecycleStatusRunning
}

// IsFinished returns true if the entity has completed or stopped
func (sm *LifecycleStateMachine) IsFinished() bool {
	return sm.status == LifecycleStatusCompleted || sm.status == LifecycleStatusStopped
}

// RecoverFromPersistence restores state when reconstructing entities from a snapshot
func (sm *LifecycleStateMachine) RecoverFromPersistence(status LifecycleStatus, startedAt, stoppedAt *time.Time) {
	sm.status = status
	sm.startedAt = startedAt
	sm.stoppedAt = stoppedAt
}

// ToMap exports status and timestamps; unset timestamps are empty strings
func (sm *LifecycleStateMachine) ToMap() map[string]any {
	return map[string]any{
		"status":     string(sm.status),
		"started_at": formatOptionalTime(sm.startedAt),
		"stopped_at": formatOptionalTime(sm.stoppedAt),
	}
}

// LifecycleFromMap restores a state machine exported by ToMap
func LifecycleFromMap(m map[string]any, clock Clock) (*LifecycleStateMachine, error) {
	r := NewStateReader(m)
	status := LifecycleStatus(r.String("status"))
	started, stopped := r.String("started_at"), r.String("stopped_at")
	if err := r.Err(); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown lifecycle status %q", status))
	}
	startedAt, err := parseOptionalTime(started)
	if err != nil {
		return nil, err
	}
	stoppedAt, err := parseOptionalTime(stopped)
	if err != nil {
		return nil, err
	}
	sm := NewLifecycleStateMachine(clock)
	sm.RecoverFromPersistence(status, startedAt, stoppedAt)
	return sm, nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
