package production_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/test/helpers"
)

type controllerFixture struct {
	funds      *ledger.InMemoryLedger
	recorder   *events.Recorder
	clock      *shared.SimulationClock
	spawner    *appProduction.SequentialSpawner
	validator  *ledger.ProductionCostValidator
	manager    *appProduction.FactoryManager
	controller *appProduction.ContinuousProductionController
	factory    *production.Factory
}

func newControllerFixture(t *testing.T, ree float64, opts ...appProduction.ControllerOption) *controllerFixture {
	t.Helper()
	costs := catalog.Default()
	fx := &controllerFixture{
		funds:    ledger.NewInMemoryLedger(0),
		recorder: events.NewRecorder(),
		clock:    shared.NewSimulationClock(),
		spawner:  appProduction.NewSequentialSpawner(),
	}
	require.NoError(t, fx.funds.Deposit(red, ree, plentyOfPower))
	fx.validator = ledger.NewProductionCostValidator(costs, fx.funds,
		ledger.WithPublisher(fx.recorder),
		ledger.WithClock(fx.clock),
	)
	fx.manager = appProduction.NewFactoryManager(costs, production.DefaultFactoryConfig(), fx.funds,
		appProduction.WithValidator(fx.validator),
		appProduction.WithManagerPublisher(fx.recorder),
	)
	base := []appProduction.ControllerOption{
		appProduction.WithSpawner(fx.spawner),
		appProduction.WithSimulationClock(fx.clock),
		appProduction.WithControllerPublisher(fx.recorder),
	}
	fx.controller = appProduction.NewContinuousProductionController(fx.manager, fx.validator, append(base, opts...)...)

	factory, err := fx.manager.CreateFactory(catalog.FactoryTypeCombat, red, shared.NewVector3(10, 0, 20), "")
	require.NoError(t, err)
	fx.factory = factory
	return fx
}

func (fx *controllerFixture) run(ticks int, delta float64) {
	for i := 0; i < ticks; i++ {
		fx.controller.Process(delta)
	}
}

func TestController_ReservedJobCommitsAndSpawns(t *testing.T) {
	// Arrange
	fx := newControllerFixture(t, 100)

	// Act
	job, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)
	require.True(t, job.IsReserved())
	assert.Equal(t, 1, fx.validator.PendingCount())
	assert.Equal(t, 50.0, fx.validator.SpendableREE(red))
	fx.run(3, 1.0)

	// Assert
	assert.Equal(t, 0, fx.validator.PendingCount())
	assert.InDelta(t, 50.0, fx.funds.Available(red).REE, 1e-9)
	assert.InDelta(t, plentyOfPower-15, fx.funds.Available(red).Power, 1e-9)

	spawned := fx.spawner.Spawned()
	require.Len(t, spawned, 1)
	assert.Equal(t, "drone", spawned[0].UnitType)
	assert.Equal(t, fx.factory.Position(), spawned[0].Position)

	stats := fx.controller.Statistics()
	assert.Equal(t, 1, stats.TotalProduced)
	assert.Equal(t, 1, stats.ProducedByType["drone"])
	assert.Equal(t, 1, stats.ProducedByFaction[red])
	assert.Equal(t, 3, stats.Ticks)
	assert.InDelta(t, 50.0, stats.REEConsumed, 1e-9)
	assert.InDelta(t, 15.0, stats.PowerConsumed, 1e-9)

	completed, ok := fx.recorder.Last(events.EventProductionCompleted)
	require.True(t, ok)
	assert.Equal(t, float64(spawned[0].UnitID), completed.Value)
	assert.Equal(t, job.Reservation(), completed.TransactionID)

	analytics := fx.validator.Analytics(red)
	assert.Equal(t, 1, analytics.UnitsProduced)
	assert.Equal(t, 50.0, analytics.REESpent)
}

func TestController_QueueDeniedWhenUnaffordable(t *testing.T) {
	fx := newControllerFixture(t, 199)

	job, err := fx.controller.QueueUnit(fx.factory.ID(), "tank")

	var insufficient *ledger.ErrInsufficientFunds
	require.ErrorAs(t, err, &insufficient)
	assert.Nil(t, job)
	assert.True(t, fx.factory.Queue().IsEmpty())
	assert.Equal(t, 1, fx.recorder.Count(events.EventProductionDenied))
	assert.Equal(t, 0, fx.validator.PendingCount())
}

func TestController_FullQueueLeavesNoReservation(t *testing.T) {
	fx := newControllerFixture(t, 10_000)
	for i := 0; i < production.DefaultQueueCapacity; i++ {
		_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
		require.NoError(t, err)
	}

	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")

	var full *production.ErrQueueFull
	require.ErrorAs(t, err, &full)
	assert.Equal(t, production.DefaultQueueCapacity, fx.validator.PendingCount())
}

func TestController_WrongFactoryTypeLeavesNoReservation(t *testing.T) {
	fx := newControllerFixture(t, 10_000)

	_, err := fx.controller.QueueUnit(fx.factory.ID(), "harvester")

	var notProduceable *production.ErrUnitNotProduceable
	require.ErrorAs(t, err, &notProduceable)
	assert.Equal(t, 0, fx.validator.PendingCount())

	var notFound *appProduction.ErrFactoryNotFound
	_, err = fx.controller.QueueUnit(99, "drone")
	assert.ErrorAs(t, err, &notFound)
}

func TestController_CancelReleasesReservation(t *testing.T) {
	fx := newControllerFixture(t, 300)
	job, err := fx.controller.QueueUnit(fx.factory.ID(), "tank")
	require.NoError(t, err)
	fx.run(2, 1.0)

	require.NoError(t, fx.controller.CancelJob(fx.factory.ID(), job.ID()))

	assert.Equal(t, 0.0, fx.validator.ReservedREE(red))
	assert.Equal(t, 300.0, fx.funds.Available(red).REE)
	assert.Equal(t, 1, fx.recorder.Count(events.EventProductionCancelled))
	assert.True(t, fx.factory.Queue().IsEmpty())
}

func TestController_PauseBypassesProcessing(t *testing.T) {
	fx := newControllerFixture(t, 100)
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)

	fx.controller.Pause()
	fx.run(10, 1.0)

	assert.True(t, fx.controller.IsPaused())
	assert.Equal(t, production.JobStateQueued, fx.factory.CurrentJob().State())
	assert.Equal(t, 0, fx.controller.Statistics().Ticks)
	assert.Equal(t, 0.0, fx.clock.Elapsed())

	fx.controller.Resume()
	fx.run(3, 1.0)
	assert.Equal(t, 1, fx.controller.Statistics().TotalProduced)
}

func TestController_SpeedMultiplierDilatesTime(t *testing.T) {
	fx := newControllerFixture(t, 100)
	require.NoError(t, fx.controller.SetSpeedMultiplier(2.0))
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)

	fx.controller.Process(1.5)

	assert.Equal(t, 1, fx.controller.Statistics().TotalProduced)
	assert.Equal(t, 3.0, fx.clock.Elapsed())
	assert.Error(t, fx.controller.SetSpeedMultiplier(0))
	assert.Equal(t, 2.0, fx.controller.SpeedMultiplier())
}

func TestController_SpawnFailureKeepsSpend(t *testing.T) {
	// Arrange
	spawner := helpers.NewMockSpawner()
	spawner.FailFor["drone"] = true
	fx := newControllerFixture(t, 100, appProduction.WithSpawner(spawner))
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)

	// Act
	fx.run(3, 1.0)

	// Assert
	stats := fx.controller.Statistics()
	assert.Equal(t, 1, stats.FailedSpawns)
	assert.Equal(t, 0, stats.TotalProduced)
	assert.Equal(t, []string{"1:drone"}, spawner.Attempts)
	assert.InDelta(t, 50.0, fx.funds.Available(red).REE, 1e-9)
	assert.Equal(t, 1, fx.recorder.Count(events.EventProductionFailed))
	assert.Equal(t, 0, fx.recorder.Count(events.EventProductionCompleted))
}

func TestController_CommitFailureSkipsSpawn(t *testing.T) {
	// Arrange
	fx := newControllerFixture(t, 50)
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)
	require.NoError(t, fx.funds.SetBalance(red, ledger.Resources{REE: 0, Power: plentyOfPower}))

	// Act
	fx.run(3, 1.0)

	// Assert
	stats := fx.controller.Statistics()
	assert.Equal(t, 1, stats.FailedCommits)
	assert.Equal(t, 0, stats.TotalProduced)
	assert.Empty(t, fx.spawner.Spawned())
	assert.Equal(t, 0, fx.validator.PendingCount())
	failed, ok := fx.recorder.Last(events.EventProductionFailed)
	require.True(t, ok)
	assert.Equal(t, "drone", failed.UnitType)
}

func TestController_DirectJobsRecordAnalytics(t *testing.T) {
	fx := newControllerFixture(t, 100)
	_, err := fx.manager.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)

	fx.run(3, 1.0)

	assert.Equal(t, 1, fx.controller.Statistics().TotalProduced)
	assert.InDelta(t, 50.0, fx.controller.Statistics().REEConsumed, 1e-9)
	assert.Equal(t, 1, fx.validator.Analytics(red).UnitsProduced)
	assert.Equal(t, 50.0, fx.validator.Analytics(red).REESpent)
}

func TestController_CommitChargeAppearsInTickReport(t *testing.T) {
	// Arrange
	fx := newControllerFixture(t, 100)
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)
	fx.run(2, 1.0)

	// Act
	report := fx.controller.Process(1.0)

	// Assert
	require.Len(t, report.Completed, 1)
	assert.InDelta(t, 50.0, report.TotalREE(), 1e-9)
}

func TestController_DirectJobsPayFactionModifiedCost(t *testing.T) {
	// Arrange
	fx := newControllerFixture(t, 200)
	require.NoError(t, fx.validator.SetFactionModifier(red, 2.0))
	job, err := fx.manager.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)
	require.False(t, job.IsReserved())

	// Act
	fx.run(3, 1.0)

	// Assert
	assert.Equal(t, 100.0, job.REECost())
	assert.InDelta(t, 100.0, fx.funds.Available(red).REE, 1e-9)
	assert.InDelta(t, 100.0, fx.controller.Statistics().REEConsumed, 1e-9)
	assert.Equal(t, 100.0, fx.validator.Analytics(red).REESpent)
}

func TestController_UnpaidChargesAreCounted(t *testing.T) {
	// Arrange
	costs := catalog.Default()
	funds := ledger.NewInMemoryLedger(0)
	require.NoError(t, funds.Deposit(red, 100, plentyOfPower))
	offline := helpers.NewCountingLedger(funds)
	offline.ConsumeErr = errors.New("ledger offline")
	manager := appProduction.NewFactoryManager(costs, production.DefaultFactoryConfig(), offline)
	controller := appProduction.NewContinuousProductionController(manager, nil)
	factory, err := manager.CreateFactory(catalog.FactoryTypeCombat, red, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)
	_, err = controller.QueueUnit(factory.ID(), "drone")
	require.NoError(t, err)

	// Act
	report := controller.Process(1.0)

	// Assert
	require.Len(t, report.Unpaid, 1)
	assert.Empty(t, report.Consumption)
	assert.Equal(t, 1, controller.Statistics().UnpaidCharges)
	assert.Zero(t, controller.Statistics().REEConsumed)
	assert.InDelta(t, 100.0, funds.Available(red).REE, 1e-9)
}

func TestController_StateRoundTrip(t *testing.T) {
	fx := newControllerFixture(t, 100)
	_, err := fx.controller.QueueUnit(fx.factory.ID(), "drone")
	require.NoError(t, err)
	fx.run(3, 1.0)
	require.NoError(t, fx.controller.SetSpeedMultiplier(1.5))
	fx.controller.Pause()

	raw, err := json.Marshal(fx.controller.ToMap())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored := appProduction.NewContinuousProductionController(fx.manager, fx.validator)
	require.NoError(t, restored.RestoreFromMap(decoded))

	assert.True(t, restored.IsPaused())
	assert.Equal(t, 1.5, restored.SpeedMultiplier())
	assert.Equal(t, fx.controller.Statistics(), restored.Statistics())
}
