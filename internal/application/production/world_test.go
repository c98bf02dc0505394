package production_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/test/helpers"
)

func newWorld(t *testing.T, opts ...appProduction.WorldOption) (*appProduction.World, *events.Recorder) {
	t.Helper()
	w, err := appProduction.NewWorld(catalog.Default(), appProduction.DefaultWorldConfig(), opts...)
	require.NoError(t, err)
	recorder := events.NewRecorder()
	w.Bus.SubscribeAll(recorder.Publish)
	return w, recorder
}

func TestWorld_CompletedSiteBecomesFactory(t *testing.T) {
	// Arrange
	w, recorder := newWorld(t, appProduction.WithDistricts(construction.StaticDistricts{"north": red}))
	site, err := w.Construction.StartConstruction(shared.NewVector3(0, 0, 0), red, "north", catalog.FactoryTypeHarvester)
	require.NoError(t, err)
	require.NoError(t, w.Construction.AddBuilder(site.ID(), 1))

	// Act
	var built []*production.Factory
	for i := 0; i < 30; i++ {
		result, err := w.Tick(1.0)
		require.NoError(t, err)
		built = append(built, result.Built...)
	}

	// Assert
	require.Len(t, built, 1)
	assert.Equal(t, catalog.FactoryTypeHarvester, built[0].Type())
	assert.Equal(t, "north", built[0].DistrictID())
	assert.Equal(t, 1, w.Manager.Len())
	assert.Equal(t, 1, w.Construction.FactoryCount(red))
	assert.Empty(t, w.Construction.Sites())
	assert.Equal(t, 3, recorder.Count(events.EventConstructionProgress))
	assert.Equal(t, 1, recorder.Count(events.EventConstructionCompleted))
	assert.Equal(t, 1, recorder.Count(events.EventFactoryCreated))
}

func TestWorld_PauseFreezesConstruction(t *testing.T) {
	w, _ := newWorld(t)
	site, err := w.Construction.StartConstruction(shared.NewVector3(0, 0, 0), red, "", catalog.FactoryTypeCombat)
	require.NoError(t, err)
	require.NoError(t, w.Construction.AddBuilder(site.ID(), 1))

	w.Controller.Pause()
	_, err = w.Tick(60)
	require.NoError(t, err)

	assert.Equal(t, 0.0, site.Progress())
	assert.Equal(t, 0, w.Manager.Len())
}

func TestWorld_DestroyedFactoryFreesPlacementSlot(t *testing.T) {
	// Arrange
	w, _ := newWorld(t)
	first, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeCombat, red, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)

	_, err = w.Coordinator.PlaceFactory(catalog.FactoryTypeSupport, red, shared.NewVector3(50, 0, 0), "")
	var invalid *construction.ErrInvalidPlacement
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "Too close")

	// Act
	require.NoError(t, w.Manager.DestroyFactory(first.ID()))

	// Assert
	assert.Equal(t, 0, w.Construction.FactoryCount(red))
	_, err = w.Coordinator.PlaceFactory(catalog.FactoryTypeSupport, red, shared.NewVector3(50, 0, 0), "")
	assert.NoError(t, err)
}

func TestWorld_SandboxNeverRunsOutOfFunds(t *testing.T) {
	w, _ := newWorld(t, appProduction.WithSandbox())
	factory, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeCombat, red, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)
	for i := 0; i < production.DefaultQueueCapacity; i++ {
		_, err := w.Controller.QueueUnit(factory.ID(), "artillery")
		require.NoError(t, err)
	}

	for i := 0; i < 50; i++ {
		_, err := w.Tick(1.0)
		require.NoError(t, err)
	}

	assert.Equal(t, production.DefaultQueueCapacity, w.Controller.Statistics().TotalProduced)
	assert.Error(t, w.Deposit(red, 10, 10))
}

func TestWorld_SpawnerReceivesUnitsAtFactoryPosition(t *testing.T) {
	spawner := helpers.NewMockSpawner()
	w, recorder := newWorld(t, appProduction.WithWorldSpawner(spawner))
	require.NoError(t, w.Deposit(red, 100, plentyOfPower))
	support, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeSupport, red, shared.NewVector3(40, 0, 40), "")
	require.NoError(t, err)
	_, err = w.Controller.QueueUnit(support.ID(), "scout")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := w.Tick(1.0)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"1:scout"}, spawner.Attempts)
	done, ok := recorder.Last(events.EventProductionCompleted)
	require.True(t, ok)
	assert.Equal(t, 1.0, done.Value)
	assert.Equal(t, shared.NewVector3(40, 0, 40), done.Position)
}

func buildBusyWorld(t *testing.T) *appProduction.World {
	t.Helper()
	w, _ := newWorld(t)
	require.NoError(t, w.Deposit(red, 1000, plentyOfPower))
	require.NoError(t, w.Deposit(blue, 120, plentyOfPower))

	combat, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeCombat, red, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)
	harvest, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeHarvester, blue, shared.NewVector3(500, 0, 0), "")
	require.NoError(t, err)

	_, err = w.Controller.QueueUnit(combat.ID(), "tank")
	require.NoError(t, err)
	_, err = w.Manager.QueueUnit(combat.ID(), "soldier")
	require.NoError(t, err)
	_, err = w.Manager.QueueUnit(harvest.ID(), "hauler")
	require.NoError(t, err)
	require.NoError(t, w.Controller.SetOverclock(combat.ID(), 2.0))

	site, err := w.Construction.StartConstruction(shared.NewVector3(0, 0, 300), red, "", catalog.FactoryTypeSupport)
	require.NoError(t, err)
	require.NoError(t, w.Construction.AddBuilder(site.ID(), 1))
	require.NoError(t, w.Construction.AddBuilder(site.ID(), 2))

	for i := 0; i < 5; i++ {
		_, err := w.Tick(1.0)
		require.NoError(t, err)
	}
	return w
}

func snapshotJSON(t *testing.T, w *appProduction.World) string {
	t.Helper()
	raw, err := json.Marshal(w.Snapshot())
	require.NoError(t, err)
	return string(raw)
}

func TestWorld_RestoredSnapshotReplaysIdentically(t *testing.T) {
	// Arrange
	original := buildBusyWorld(t)
	raw := snapshotJSON(t, original)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	// Act
	restored, err := appProduction.RestoreWorld(decoded, catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)

	// Assert
	assert.JSONEq(t, raw, snapshotJSON(t, restored))
	for i := 0; i < 40; i++ {
		_, err := original.Tick(0.5)
		require.NoError(t, err)
		_, err = restored.Tick(0.5)
		require.NoError(t, err)
	}
	assert.JSONEq(t, snapshotJSON(t, original), snapshotJSON(t, restored))
	assert.Equal(t, original.Clock.Elapsed(), restored.Clock.Elapsed())
	assert.Equal(t, 2, restored.Construction.FactoryCount(red))
}

func TestRestoreWorld_RejectsUnknownVersion(t *testing.T) {
	w, _ := newWorld(t)
	snapshot := w.Snapshot()
	snapshot["version"] = 99

	_, err := appProduction.RestoreWorld(snapshot, catalog.Default(), appProduction.DefaultWorldConfig())

	assert.Error(t, err)
}
