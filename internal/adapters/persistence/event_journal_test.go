package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/test/helpers"
)

func TestEventJournal_FlushAndReplay(t *testing.T) {
	// Arrange
	ctx := context.Background()
	db := helpers.NewTestDB(t)
	w, err := appProduction.NewWorld(catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)
	journal := persistence.NewEventJournal(db, "match-1", w.Clock)
	recorder := events.NewRecorder()
	w.Bus.SubscribeAll(journal.Publish)
	w.Bus.SubscribeAll(recorder.Publish)

	faction := shared.MustNewFactionID(1)
	require.NoError(t, w.Deposit(faction, 100, 100))
	f, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeSupport, faction, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)
	_, err = w.Controller.QueueUnit(f.ID(), "scout")
	require.NoError(t, err)
	_, err = w.Controller.QueueUnit(f.ID(), "tank")
	require.Error(t, err)
	for i := 0; i < 2; i++ {
		_, err := w.Tick(1.0)
		require.NoError(t, err)
	}

	// Act
	require.Equal(t, len(recorder.Events()), journal.Pending())
	require.NoError(t, journal.Flush(ctx))
	replayed, err := persistence.Replay(ctx, db, "match-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, journal.Pending())
	require.Len(t, replayed, len(recorder.Events()))
	for i, e := range recorder.Events() {
		assert.Equal(t, e.Type, replayed[i].Type)
		assert.Equal(t, e.FactionID, replayed[i].FactionID)
		assert.Equal(t, e.UnitType, replayed[i].UnitType)
	}
	assert.Equal(t, events.EventProductionCompleted, replayed[len(replayed)-1].Type)

	require.NoError(t, persistence.TruncateJournal(ctx, db, "match-1"))
	replayed, err = persistence.Replay(ctx, db, "match-1")
	require.NoError(t, err)
	assert.Empty(t, replayed)
}

func TestEventJournal_ResumeAppendsAfterStoredEvents(t *testing.T) {
	// Arrange
	ctx := context.Background()
	db := helpers.NewTestDB(t)
	clock := shared.NewSimulationClock()
	first := persistence.NewEventJournal(db, "match-2", clock)
	first.Publish(events.Event{Type: events.EventFactoryCreated, FactoryID: 1})
	first.Publish(events.Event{Type: events.EventProductionStarted, FactoryID: 1})
	require.NoError(t, first.Flush(ctx))

	// Act
	second := persistence.NewEventJournal(db, "match-2", clock)
	require.NoError(t, second.Resume(ctx))
	second.Publish(events.Event{Type: events.EventFactoryDestroyed, FactoryID: 1})
	require.NoError(t, second.Flush(ctx))
	replayed, err := persistence.Replay(ctx, db, "match-2")

	// Assert
	require.NoError(t, err)
	require.Len(t, replayed, 3)
	assert.Equal(t, events.EventFactoryDestroyed, replayed[2].Type)
}
