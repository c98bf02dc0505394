package production_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

var tank = catalog.MustNewUnitCost("tank", 200, 15, 8, catalog.FactoryTypeCombat)

func assertOnlyHeadActive(t *testing.T, q *production.ProductionQueue) {
	t.Helper()
	for i, job := range q.Jobs() {
		assert.Equal(t, i, job.Position())
		if i > 0 {
			assert.Equal(t, production.JobStateQueued, job.State(), "job %d at position %d", job.ID(), i)
		}
	}
}

func TestProductionQueue_RejectsWhenFull(t *testing.T) {
	q := production.NewProductionQueue(2, 5)
	faction := shared.MustNewFactionID(1)

	_, err := q.QueueUnit(faction, drone, "")
	require.NoError(t, err)
	_, err = q.QueueUnit(faction, drone, "")
	require.NoError(t, err)
	job, err := q.QueueUnit(faction, drone, "")

	assert.Nil(t, job)
	var full *production.ErrQueueFull
	require.ErrorAs(t, err, &full)
	assert.Equal(t, 2, full.Capacity)
}

func TestProductionQueue_CompletesDroneInThreeSeconds(t *testing.T) {
	// Arrange
	q := production.NewProductionQueue(5, 5)
	_, err := q.QueueUnit(shared.MustNewFactionID(1), drone, "")
	require.NoError(t, err)

	// Act
	var completed []*production.ProductionJob
	for i := 0; i < 6; i++ {
		step := q.Process(0.5, 1.0, true)
		if step.Completed != nil {
			completed = append(completed, step.Completed)
		}
	}

	// Assert
	require.Len(t, completed, 1)
	assert.Equal(t, production.JobStateCompleted, completed[0].State())
	assert.True(t, q.IsEmpty())
}

func TestProductionQueue_OnlyHeadAdvances(t *testing.T) {
	q := production.NewProductionQueue(5, 5)
	faction := shared.MustNewFactionID(1)
	first, _ := q.QueueUnit(faction, tank, "")
	second, _ := q.QueueUnit(faction, drone, "")

	q.Process(1.0, 1.0, true)

	assert.Equal(t, production.JobStateInProgress, first.State())
	assert.Equal(t, production.JobStateQueued, second.State())
	assert.Equal(t, 0.0, second.Progress())
	assertOnlyHeadActive(t, q)
}

func TestProductionQueue_PauseKeepsProgress(t *testing.T) {
	q := production.NewProductionQueue(5, 5)
	job, _ := q.QueueUnit(shared.MustNewFactionID(1), tank, "")
	q.Process(2.0, 1.0, true)

	step := q.Process(1.0, 1.0, false)

	assert.True(t, step.Paused)
	assert.Equal(t, production.JobStateAwaitingResources, job.State())
	assert.InDelta(t, 0.25, job.Progress(), 1e-9)

	step = q.Process(1.0, 1.0, true)
	assert.True(t, step.Resumed)
	assert.Equal(t, 0.0, job.ResourceWait())
	assert.InDelta(t, 0.375, job.Progress(), 1e-9)
}

func TestProductionQueue_StarvedHeadRequeuedToTail(t *testing.T) {
	// Arrange
	q := production.NewProductionQueue(5, 5)
	faction := shared.MustNewFactionID(1)
	starving, _ := q.QueueUnit(faction, tank, "")
	next, _ := q.QueueUnit(faction, drone, "")
	q.Process(1.0, 1.0, true)

	// Act
	var requeued bool
	for i := 0; i < 6; i++ {
		requeued = q.Process(1.0, 1.0, false).Requeued
	}

	// Assert
	assert.True(t, requeued)
	assert.Equal(t, next, q.Head())
	assert.Equal(t, 1, starving.Position())
	assert.Equal(t, production.JobStateQueued, starving.State())
	assert.Equal(t, 0.0, starving.Progress())
	assert.Equal(t, 0.0, starving.ResourceWait())
	assertOnlyHeadActive(t, q)
}

func TestProductionQueue_CancelHeadLosesProgress(t *testing.T) {
	q := production.NewProductionQueue(5, 5)
	faction := shared.MustNewFactionID(1)
	head, _ := q.QueueUnit(faction, tank, "")
	tail, _ := q.QueueUnit(faction, drone, "")
	q.Process(4.0, 1.0, true)

	cancelled, err := q.Cancel(head.ID())

	require.NoError(t, err)
	assert.Equal(t, production.JobStateCancelled, cancelled.State())
	assert.Equal(t, tail, q.Head())
	assert.Equal(t, 0, tail.Position())

	_, err = q.Cancel(head.ID())
	var notFound *production.ErrJobNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestProductionQueue_ClearReturnsAllJobs(t *testing.T) {
	q := production.NewProductionQueue(5, 5)
	faction := shared.MustNewFactionID(1)
	q.QueueUnit(faction, tank, "")
	q.QueueUnit(faction, drone, "")

	removed := q.Clear()

	assert.Len(t, removed, 2)
	assert.True(t, q.IsEmpty())
	for _, job := range removed {
		assert.Equal(t, production.JobStateCancelled, job.State())
	}
}

func TestProductionQueue_SetCapacityCannotDropJobs(t *testing.T) {
	q := production.NewProductionQueue(2, 5)
	faction := shared.MustNewFactionID(1)
	q.QueueUnit(faction, drone, "")
	q.QueueUnit(faction, drone, "")

	assert.Error(t, q.SetCapacity(1))
	require.NoError(t, q.SetCapacity(4))
	assert.False(t, q.IsFull())
}

func TestProductionQueue_MapRoundTripPreservesInFlightJob(t *testing.T) {
	// Arrange
	q := production.NewProductionQueue(5, 5)
	faction := shared.MustNewFactionID(2)
	q.QueueUnit(faction, tank, "tx-1")
	q.QueueUnit(faction, drone, "")
	q.Process(3.0, 1.0, true)
	q.Process(1.0, 1.0, false)

	// Act
	restored, err := production.ProductionQueueFromMap(q.ToMap())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, q.ToMap(), restored.ToMap())
	assert.Equal(t, production.JobStateAwaitingResources, restored.Head().State())

	job, err := restored.QueueUnit(faction, drone, "")
	require.NoError(t, err)
	assert.Equal(t, production.JobID(3), job.ID())
}
