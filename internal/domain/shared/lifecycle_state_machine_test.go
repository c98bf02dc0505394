package shared_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

func TestLifecycle_StartCompleteStampsTimes(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	sm := shared.NewLifecycleStateMachine(clock)

	// Act
	require.NoError(t, sm.Start())
	clock.Advance(30 * time.Second)
	require.NoError(t, sm.Complete())

	// Assert
	assert.Equal(t, shared.LifecycleStatusCompleted, sm.Status())
	assert.True(t, sm.IsFinished())
	require.NotNil(t, sm.StartedAt())
	require.NotNil(t, sm.StoppedAt())
	assert.Equal(t, 30*time.Second, sm.StoppedAt().Sub(*sm.StartedAt()))
}

func TestLifecycle_FinishedStatesRejectTransitions(t *testing.T) {
	sm := shared.NewLifecycleStateMachine(shared.NewMockClock(time.Time{}))
	require.NoError(t, sm.Start())
	require.NoError(t, sm.Stop())

	assert.Error(t, sm.Stop())
	assert.Error(t, sm.Complete())
	assert.Error(t, sm.Start())
	assert.False(t, sm.IsRunning())
}

func TestLifecycleFromMap_RestoresStatusAndTimes(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))
	sm := shared.NewLifecycleStateMachine(clock)
	require.NoError(t, sm.Start())

	restored, err := shared.LifecycleFromMap(sm.ToMap(), clock)

	require.NoError(t, err)
	assert.Equal(t, shared.LifecycleStatusRunning, restored.Status())
	require.NotNil(t, restored.StartedAt())
	assert.True(t, sm.StartedAt().Equal(*restored.StartedAt()))
	assert.Nil(t, restored.StoppedAt())
}

func TestLifecycleFromMap_RejectsUnknownStatus(t *testing.T) {
	_, err := shared.LifecycleFromMap(map[string]any{"status": "PAUSED", "started_at": "", "stopped_at": ""}, nil)

	require.Error(t, err)
	var validation *shared.ValidationError
	assert.ErrorAs(t, err, &validation)
}
