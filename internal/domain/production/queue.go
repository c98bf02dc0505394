package production

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// DefaultQueueCapacity is the number of jobs a fresh factory can hold
const DefaultQueueCapacity = 5

// QueueStep reports what happened to the head job during one Process call
type QueueStep struct {
	Head           *ProductionJob // head job at the start of the call, nil when empty
	Started        bool           // head left QUEUED this call
	Resumed        bool           // head left AWAITING_RESOURCES this call
	Paused         bool           // head entered AWAITING_RESOURCES this call
	Requeued       bool           // head was moved to the tail
	Advanced       bool           // head made progress
	ProgressBefore float64
	ProgressAfter  float64
	Completed      *ProductionJob
}

// ProductionQueue is an ordered, bounded list of jobs for one factory.
// Only jobs[0] may be IN_PROGRESS or AWAITING_RESOURCES.
type ProductionQueue struct {
	jobs      []*ProductionJob
	capacity  int
	maxWait   float64
	nextJobID JobID
}

// NewProductionQueue creates an empty queue
func NewProductionQueue(capacity int, maxWait float64) *ProductionQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxResourceWait
	}
	return &ProductionQueue{
		jobs:      make([]*ProductionJob, 0, capacity),
		capacity:  capacity,
		maxWait:   maxWait,
		nextJobID: 1,
	}
}

func (q *ProductionQueue) Capacity() int    { return q.capacity }
func (q *ProductionQueue) MaxWait() float64 { return q.maxWait }
func (q *ProductionQueue) Len() int         { return len(q.jobs) }
func (q *ProductionQueue) IsFull() bool     { return len(q.jobs) >= q.capacity }
func (q *ProductionQueue) IsEmpty() bool    { return len(q.jobs) == 0 }

// Head returns the current job, or nil
func (q *ProductionQueue) Head() *ProductionJob {
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// Jobs returns a copy of the job list in queue order
func (q *ProductionQueue) Jobs() []*ProductionJob {
	out := make([]*ProductionJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

// Find returns the job with the given id
func (q *ProductionQueue) Find(id JobID) (*ProductionJob, bool) {
	for _, j := range q.jobs {
		if j.id == id {
			return j, true
		}
	}
	return nil, false
}

// QueueUnit appends a new job priced from cost
func (q *ProductionQueue) QueueUnit(factionID shared.FactionID, cost catalog.UnitCost, reservation string) (*ProductionJob, error) {
	if q.IsFull() {
		return nil, &ErrQueueFull{Capacity: q.capacity}
	}
	job := NewProductionJob(q.nextJobID, factionID, cost, reservation)
	q.nextJobID++
	job.setPosition(len(q.jobs))
	q.jobs = append(q.jobs, job)
	return job, nil
}

// Process advances the head job only; later jobs stay QUEUED
func (q *ProductionQueue) Process(delta, speedMultiplier float64, hasResources bool) QueueStep {
	head := q.Head()
	step := QueueStep{Head: head}
	if head == nil {
		return step
	}
	step.ProgressBefore = head.progress
	step.ProgressAfter = head.progress

	if !hasResources {
		if head.state != JobStateAwaitingResources {
			step.Paused = true
		}
		_ = head.SetAwaitingResources()
		if head.UpdateResourceWait(delta, q.maxWait) {
			q.requeueHead()
			step.Requeued = true
			step.ProgressAfter = 0
		}
		return step
	}

	switch head.state {
	case JobStateQueued:
		step.Started = true
		_ = head.Start()
	case JobStateAwaitingResources:
		step.Resumed = true
		_ = head.Start()
	}

	if head.Update(delta, speedMultiplier) {
		step.Completed = head
		q.jobs = q.jobs[1:]
		q.renumber()
	}
	step.ProgressAfter = head.progress
	step.Advanced = step.ProgressAfter > step.ProgressBefore
	return step
}

func (q *ProductionQueue) requeueHead() {
	head := q.jobs[0]
	_ = head.Requeue()
	q.jobs = append(q.jobs[1:], head)
	q.renumber()
}

// Cancel removes a job from anywhere in the queue. Head progress is lost.
func (q *ProductionQueue) Cancel(id JobID) (*ProductionJob, error) {
	for i, j := range q.jobs {
		if j.id != id {
			continue
		}
		if err := j.Cancel(); err != nil {
			return nil, err
		}
		q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
		q.renumber()
		return j, nil
	}
	return nil, &ErrJobNotFound{JobID: id}
}

// Clear cancels and removes every job, returning them in queue order
func (q *ProductionQueue) Clear() []*ProductionJob {
	removed := q.jobs
	for _, j := range removed {
		_ = j.Cancel()
	}
	q.jobs = make([]*ProductionJob, 0, q.capacity)
	return removed
}

// SetCapacity grows the queue; shrinking below the current length is refused
func (q *ProductionQueue) SetCapacity(capacity int) error {
	if capacity < len(q.jobs) || capacity <= 0 {
		return shared.NewValidationError("capacity",
			fmt.Sprintf("cannot set capacity %d with %d queued jobs", capacity, len(q.jobs)))
	}
	q.capacity = capacity
	return nil
}

func (q *ProductionQueue) renumber() {
	for i, j := range q.jobs {
		j.setPosition(i)
	}
}

// ToMap exports the queue including every job
func (q *ProductionQueue) ToMap() map[string]any {
	jobs := make([]map[string]any, 0, len(q.jobs))
	for _, j := range q.jobs {
		jobs = append(jobs, j.ToMap())
	}
	return map[string]any{
		"capacity":    q.capacity,
		"max_wait":    q.maxWait,
		"next_job_id": int64(q.nextJobID),
		"jobs":        jobs,
	}
}

// ProductionQueueFromMap reconstructs a queue exported by ToMap
func ProductionQueueFromMap(m map[string]any) (*ProductionQueue, error) {
	r := shared.NewStateReader(m)
	q := &ProductionQueue{
		capacity:  r.Int("capacity"),
		maxWait:   r.Float("max_wait"),
		nextJobID: JobID(r.Int64("next_job_id")),
	}
	jobMaps := r.Maps("jobs")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("queue state: %w", err)
	}
	q.jobs = make([]*ProductionJob, 0, len(jobMaps))
	for _, jm := range jobMaps {
		job, err := ProductionJobFromMap(jm)
		if err != nil {
			return nil, err
		}
		q.jobs = append(q.jobs, job)
	}
	if q.capacity < len(q.jobs) {
		return nil, shared.NewValidationError("capacity", "fewer slots than stored jobs")
	}
	q.renumber()
	return q, nil
}
