package production

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// JobID identifies a production job within its factory
type JobID int64

// JobState represents the lifecycle state of a production job
type JobState string

const (
	// JobStateQueued - waiting in line or requeued after starvation
	JobStateQueued JobState = "QUEUED"

	// JobStateInProgress - head job actively consuming resources
	JobStateInProgress JobState = "IN_PROGRESS"

	// JobStateAwaitingResources - head job paused, progress kept
	JobStateAwaitingResources JobState = "AWAITING_RESOURCES"

	// JobStateCompleted - terminal, unit ready to spawn
	JobStateCompleted JobState = "COMPLETED"

	// JobStateCancelled - terminal, removed from queue
	JobStateCancelled JobState = "CANCELLED"
)

// DefaultMaxResourceWait is how long a head job may starve before it is requeued
const DefaultMaxResourceWait = 5.0

// completionEpsilon absorbs float drift from many small progress steps
const completionEpsilon = 1e-9

// IsTerminal returns true for COMPLETED and CANCELLED
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateCancelled
}

// IsValid checks if the state is one of the defined constants
func (s JobState) IsValid() bool {
	switch s {
	case JobStateQueued, JobStateInProgress, JobStateAwaitingResources, JobStateCompleted, JobStateCancelled:
		return true
	}
	return false
}

// ProductionJob is one unit's in-flight production record.
//
// State Machine:
//
//	QUEUED -> IN_PROGRESS <-> AWAITING_RESOURCES -> COMPLETED
//	any non-terminal -> CANCELLED
//	AWAITING_RESOURCES -> QUEUED (requeue, progress lost)
//
// Cost fields are copied from the catalog at queue time and never change afterwards.
type ProductionJob struct {
	id             JobID
	unitType       string
	factionID      shared.FactionID
	state          JobState
	progress       float64
	productionTime float64
	reeCost        float64
	powerCost      float64
	resourceWait   float64
	position       int
	reservation    string // validator transaction id; empty when paid per tick
}

// NewProductionJob creates a QUEUED job priced from the given cost record
func NewProductionJob(id JobID, factionID shared.FactionID, cost catalog.UnitCost, reservation string) *ProductionJob {
	return &ProductionJob{
		id:             id,
		unitType:       cost.UnitType(),
		factionID:      factionID,
		state:          JobStateQueued,
		productionTime: cost.ProductionTime(),
		reeCost:        cost.REECost(),
		powerCost:      cost.PowerCost(),
		reservation:    reservation,
	}
}

func (j *ProductionJob) ID() JobID                   { return j.id }
func (j *ProductionJob) UnitType() string            { return j.unitType }
func (j *ProductionJob) FactionID() shared.FactionID { return j.factionID }
func (j *ProductionJob) State() JobState             { return j.state }
func (j *ProductionJob) Progress() float64           { return j.progress }
func (j *ProductionJob) ProductionTime() float64     { return j.productionTime }
func (j *ProductionJob) REECost() float64            { return j.reeCost }
func (j *ProductionJob) PowerCost() float64          { return j.powerCost }
func (j *ProductionJob) ResourceWait() float64       { return j.resourceWait }
func (j *ProductionJob) Position() int               { return j.position }
func (j *ProductionJob) Reservation() string         { return j.reservation }

// IsReserved reports whether the job's REE was reserved up front
func (j *ProductionJob) IsReserved() bool {
	return j.reservation != ""
}

// RemainingREE is the REE still owed for this job. Reserved jobs owe nothing per tick.
func (j *ProductionJob) RemainingREE() float64 {
	if j.IsReserved() {
		return 0
	}
	return j.reeCost * (1 - j.progress)
}

// Start moves the job into IN_PROGRESS and clears the wait timer
func (j *ProductionJob) Start() error {
	if j.state != JobStateQueued && j.state != JobStateAwaitingResources {
		return &ErrInvalidJobTransition{
			JobID:       j.id,
			From:        j.state,
			To:          JobStateInProgress,
			Description: "can only start from QUEUED or AWAITING_RESOURCES",
		}
	}
	j.state = JobStateInProgress
	j.resourceWait = 0
	return nil
}

// Update advances progress and returns true exactly when the job completes
func (j *ProductionJob) Update(delta, speedMultiplier float64) bool {
	if j.state != JobStateInProgress || delta <= 0 || speedMultiplier <= 0 {
		return false
	}
	j.progress += delta * speedMultiplier / j.productionTime
	if j.progress >= 1.0-completionEpsilon {
		j.progress = 1.0
		j.state = JobStateCompleted
		return true
	}
	return false
}

// SetAwaitingResources pauses the job; repeated calls are no-ops
func (j *ProductionJob) SetAwaitingResources() error {
	switch j.state {
	case JobStateAwaitingResources:
		return nil
	case JobStateQueued, JobStateInProgress:
		j.state = JobStateAwaitingResources
		return nil
	}
	return &ErrInvalidJobTransition{
		JobID: j.id,
		From:  j.state,
		To:    JobStateAwaitingResources,
	}
}

// UpdateResourceWait accumulates starvation time and returns true once it exceeds maxWait
func (j *ProductionJob) UpdateResourceWait(delta, maxWait float64) bool {
	if delta > 0 {
		j.resourceWait += delta
	}
	return j.resourceWait > maxWait
}

// Requeue sends a starved job back to QUEUED, dropping its progress
func (j *ProductionJob) Requeue() error {
	if j.state.IsTerminal() {
		return &ErrInvalidJobTransition{
			JobID: j.id,
			From:  j.state,
			To:    JobStateQueued,
		}
	}
	j.state = JobStateQueued
	j.progress = 0
	j.resourceWait = 0
	return nil
}

// Cancel moves any non-terminal job to CANCELLED
func (j *ProductionJob) Cancel() error {
	if j.state.IsTerminal() {
		return &ErrInvalidJobTransition{
			JobID: j.id,
			From:  j.state,
			To:    JobStateCancelled,
		}
	}
	j.state = JobStateCancelled
	return nil
}

func (j *ProductionJob) setPosition(pos int) {
	j.position = pos
}

// String provides human-readable representation
func (j *ProductionJob) String() string {
	return fmt.Sprintf("Job[%d, %s, faction=%s, state=%s, progress=%.2f]",
		j.id, j.unitType, j.factionID, j.state, j.progress)
}

// ToMap exports the job as primitive fields
func (j *ProductionJob) ToMap() map[string]any {
	return map[string]any{
		"id":              int64(j.id),
		"unit_type":       j.unitType,
		"faction_id":      j.factionID.Value(),
		"state":           string(j.state),
		"progress":        j.progress,
		"production_time": j.productionTime,
		"ree_cost":        j.reeCost,
		"power_cost":      j.powerCost,
		"resource_wait":   j.resourceWait,
		"position":        j.position,
		"reservation":     j.reservation,
	}
}

// ProductionJobFromMap reconstructs a job exported by ToMap
func ProductionJobFromMap(m map[string]any) (*ProductionJob, error) {
	r := shared.NewStateReader(m)
	job := &ProductionJob{
		id:             JobID(r.Int64("id")),
		unitType:       r.String("unit_type"),
		state:          JobState(r.String("state")),
		progress:       r.Float("progress"),
		productionTime: r.Float("production_time"),
		reeCost:        r.Float("ree_cost"),
		powerCost:      r.Float("power_cost"),
		resourceWait:   r.Float("resource_wait"),
		position:       r.Int("position"),
		reservation:    r.String("reservation"),
	}
	factionID := r.Int("faction_id")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("job state: %w", err)
	}
	faction, err := shared.NewFactionID(factionID)
	if err != nil {
		return nil, fmt.Errorf("job state: %w", err)
	}
	job.factionID = faction
	if !job.state.IsValid() {
		return nil, shared.NewValidationError("state", fmt.Sprintf("unknown job state %q", job.state))
	}
	if job.productionTime <= 0 {
		return nil, shared.NewValidationError("production_time", "must be positive")
	}
	return job, nil
}
