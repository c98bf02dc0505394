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

var (
	red  = shared.MustNewFactionID(1)
	blue = shared.MustNewFactionID(2)
)

const plentyOfPower = 10_000.0

type managerFixture struct {
	funds     *ledger.InMemoryLedger
	counting  *helpers.CountingLedger
	recorder  *events.Recorder
	validator *ledger.ProductionCostValidator
	manager   *appProduction.FactoryManager
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	costs := catalog.Default()
	f := &managerFixture{
		funds:    ledger.NewInMemoryLedger(0),
		recorder: events.NewRecorder(),
	}
	f.counting = helpers.NewCountingLedger(f.funds)
	f.validator = ledger.NewProductionCostValidator(costs, f.funds, ledger.WithClock(shared.NewSimulationClock()))
	f.manager = appProduction.NewFactoryManager(costs, production.DefaultFactoryConfig(), f.counting,
		appProduction.WithValidator(f.validator),
		appProduction.WithManagerPublisher(f.recorder),
	)
	return f
}

func (f *managerFixture) combat(t *testing.T, faction shared.FactionID, x float64) *production.Factory {
	t.Helper()
	factory, err := f.manager.CreateFactory(catalog.FactoryTypeCombat, faction, shared.NewVector3(x, 0, 0), "")
	require.NoError(t, err)
	return factory
}

func TestFactoryManager_FactoriesShareFactionBudget(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 50, plentyOfPower))
	first := fx.combat(t, red, 0)
	second := fx.combat(t, red, 200)
	_, err := fx.manager.QueueUnit(first.ID(), "drone")
	require.NoError(t, err)
	_, err = fx.manager.QueueUnit(second.ID(), "drone")
	require.NoError(t, err)

	// Act
	report := fx.manager.Process(1.0)

	// Assert
	assert.Equal(t, production.JobStateInProgress, first.CurrentJob().State())
	assert.Equal(t, production.JobStateAwaitingResources, second.CurrentJob().State())
	assert.InDelta(t, 50.0/3.0, report.TotalREE(), 1e-9)
	assert.InDelta(t, 50.0-50.0/3.0, fx.funds.Available(red).REE, 1e-9)
	assert.Equal(t, 1, fx.counting.Consumes[red])
}

func TestFactoryManager_OneConsumePerFactionPerTick(t *testing.T) {
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 1000, plentyOfPower))
	require.NoError(t, fx.funds.Deposit(blue, 1000, plentyOfPower))
	for i, faction := range []shared.FactionID{red, red, red, blue} {
		factory := fx.combat(t, faction, float64(i)*200)
		_, err := fx.manager.QueueUnit(factory.ID(), "soldier")
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		fx.manager.Process(0.5)
	}

	assert.Equal(t, 4, fx.counting.Consumes[red])
	assert.Equal(t, 4, fx.counting.Consumes[blue])
	assert.InDelta(t, 1000-3*75.0/2, fx.funds.Available(red).REE, 1e-6)
}

func TestFactoryManager_ReservedREEIsHeldBack(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 240, plentyOfPower))
	factory := fx.combat(t, red, 0)
	_, err := fx.validator.BeginProduction(red, "tank")
	require.NoError(t, err)
	_, err = fx.manager.QueueUnit(factory.ID(), "drone")
	require.NoError(t, err)

	// Act
	fx.manager.Process(1.0)

	// Assert
	assert.Equal(t, production.JobStateAwaitingResources, factory.CurrentJob().State())
	assert.Equal(t, 240.0, fx.funds.Available(red).REE)
}

func TestFactoryManager_CompletedJobsCarryFactoryPosition(t *testing.T) {
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 100, plentyOfPower))
	factory := fx.combat(t, red, 300)
	_, err := fx.manager.QueueUnit(factory.ID(), "drone")
	require.NoError(t, err)

	var completed []appProduction.CompletedJob
	for i := 0; i < 3; i++ {
		completed = append(completed, fx.manager.Process(1.0).Completed...)
	}

	require.Len(t, completed, 1)
	assert.Equal(t, factory.ID(), completed[0].FactoryID)
	assert.Equal(t, shared.NewVector3(300, 0, 0), completed[0].Position)
	assert.Equal(t, "drone", completed[0].Job.UnitType())
	assert.InDelta(t, 50.0, fx.funds.Available(red).REE, 1e-9)
}

func TestFactoryManager_DestructionEliminatesFactionOnce(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 1000, plentyOfPower))
	first := fx.combat(t, red, 0)
	second := fx.combat(t, red, 200)
	txID, err := fx.validator.BeginProduction(red, "tank")
	require.NoError(t, err)
	_, err = fx.manager.QueueUnit(first.ID(), "tank", production.WithReservation(txID.String()))
	require.NoError(t, err)

	// Act
	destroyed, err := fx.manager.DamageFactory(first.ID(), 5000)
	require.NoError(t, err)
	require.NoError(t, fx.manager.DestroyFactory(second.ID()))

	// Assert
	assert.True(t, destroyed)
	assert.Equal(t, 0, fx.validator.PendingCount())
	assert.Equal(t, 1000.0, fx.funds.Available(red).REE)
	assert.Equal(t, 2, fx.recorder.Count(events.EventFactoryDestroyed))
	assert.Equal(t, 1, fx.recorder.Count(events.EventFactionEliminated))
	assert.True(t, fx.manager.IsEliminated(red))
	assert.Empty(t, fx.manager.FactionFactories(red))
	_, ok := fx.manager.Factory(first.ID())
	assert.False(t, ok)

	var notFound *appProduction.ErrFactoryNotFound
	assert.ErrorAs(t, fx.manager.DestroyFactory(first.ID()), &notFound)
}

func TestFactoryManager_PartialDamageKeepsFactory(t *testing.T) {
	fx := newManagerFixture(t)
	factory := fx.combat(t, red, 0)

	destroyed, err := fx.manager.DamageFactory(factory.ID(), 400)

	require.NoError(t, err)
	assert.False(t, destroyed)
	assert.Equal(t, 600.0, factory.Health())
	require.NoError(t, fx.manager.RepairFactory(factory.ID(), 1000))
	assert.Equal(t, 1000.0, factory.Health())
	assert.Equal(t, 0, fx.recorder.Count(events.EventFactoryDestroyed))
}

func TestFactoryManager_NewFactoryClearsElimination(t *testing.T) {
	fx := newManagerFixture(t)
	factory := fx.combat(t, red, 0)
	require.NoError(t, fx.manager.DestroyFactory(factory.ID()))
	require.True(t, fx.manager.IsEliminated(red))

	fx.combat(t, red, 0)

	assert.False(t, fx.manager.IsEliminated(red))
}

func TestFactoryManager_CancelReleasesReservation(t *testing.T) {
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 300, plentyOfPower))
	factory := fx.combat(t, red, 0)
	txID, err := fx.validator.BeginProduction(red, "tank")
	require.NoError(t, err)
	job, err := fx.manager.QueueUnit(factory.ID(), "tank", production.WithReservation(txID.String()))
	require.NoError(t, err)

	cancelled, err := fx.manager.CancelJob(factory.ID(), job.ID())

	require.NoError(t, err)
	assert.Equal(t, production.JobStateCancelled, cancelled.State())
	assert.Equal(t, 0.0, fx.validator.ReservedREE(red))
	last, ok := fx.recorder.Last(events.EventProductionCancelled)
	require.True(t, ok)
	assert.Equal(t, txID.String(), last.TransactionID)
}

func TestFactoryManager_UpgradeAndOverclock(t *testing.T) {
	fx := newManagerFixture(t)
	factory := fx.combat(t, red, 0)

	require.NoError(t, fx.manager.UpgradeFactory(factory.ID()))
	require.NoError(t, fx.manager.SetOverclock(factory.ID(), 1.5))

	assert.Equal(t, 1, factory.UpgradeLevel())
	assert.Equal(t, production.OverclockOverclocked, factory.OverclockState())
	assert.Equal(t, 1, fx.recorder.Count(events.EventFactoryUpgraded))
	assert.Equal(t, 1, fx.recorder.Count(events.EventOverclockStarted))
	assert.Error(t, fx.manager.SetOverclock(factory.ID(), 3.0))
}

func TestFactoryManager_IteratesInRegistrationOrder(t *testing.T) {
	fx := newManagerFixture(t)
	a := fx.combat(t, blue, 0)
	b := fx.combat(t, red, 200)
	c := fx.combat(t, blue, 400)

	ids := make([]production.FactoryID, 0, 3)
	for _, f := range fx.manager.Factories() {
		ids = append(ids, f.ID())
	}

	assert.Equal(t, []production.FactoryID{a.ID(), b.ID(), c.ID()}, ids)
	assert.Len(t, fx.manager.FactionFactories(blue), 2)
}

func TestFactoryManager_RestoreFromJSON(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 1000, plentyOfPower))
	factory := fx.combat(t, red, 0)
	doomed := fx.combat(t, blue, 500)
	_, err := fx.manager.QueueUnit(factory.ID(), "tank")
	require.NoError(t, err)
	fx.manager.Process(2.0)
	require.NoError(t, fx.manager.DestroyFactory(doomed.ID()))

	raw, err := json.Marshal(fx.manager.ToMap())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// Act
	restored := appProduction.NewFactoryManager(catalog.Default(), production.DefaultFactoryConfig(), nil)
	require.NoError(t, restored.RestoreFromMap(decoded))

	// Assert
	again, err := json.Marshal(restored.ToMap())
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
	assert.True(t, restored.IsEliminated(blue))
	next, err := restored.CreateFactory(catalog.FactoryTypeSupport, red, shared.NewVector3(900, 0, 0), "")
	require.NoError(t, err)
	assert.Equal(t, production.FactoryID(3), next.ID())
}

func TestFactoryManager_RefusedChargeIsReported(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 100, plentyOfPower))
	factory := fx.combat(t, red, 0)
	_, err := fx.manager.QueueUnit(factory.ID(), "drone")
	require.NoError(t, err)
	fx.counting.ConsumeErr = errors.New("ledger offline")

	// Act
	report := fx.manager.Process(1.0)

	// Assert
	require.Len(t, report.Unpaid, 1)
	assert.Equal(t, red, report.Unpaid[0].FactionID)
	assert.InDelta(t, 50.0/3.0, report.Unpaid[0].REE, 1e-9)
	assert.Empty(t, report.Consumption)
	failed, ok := fx.recorder.Last(events.EventProductionFailed)
	require.True(t, ok)
	assert.Equal(t, red, failed.FactionID)
	assert.Contains(t, failed.Reason, "ledger offline")
}

func TestFactoryManager_DirectQueuePricesAtFactionModifier(t *testing.T) {
	// Arrange
	fx := newManagerFixture(t)
	require.NoError(t, fx.funds.Deposit(red, 500, plentyOfPower))
	require.NoError(t, fx.validator.SetFactionModifier(red, 2.0))
	factory := fx.combat(t, red, 0)
	job, err := fx.manager.QueueUnit(factory.ID(), "drone")
	require.NoError(t, err)

	// Act
	charged := 0.0
	for i := 0; i < 3; i++ {
		charged += fx.manager.Process(1.0).TotalREE()
	}

	// Assert
	assert.Equal(t, 100.0, job.REECost())
	assert.InDelta(t, 100.0, charged, 1e-9)
	assert.InDelta(t, 400.0, fx.funds.Available(red).REE, 1e-9)
}

func TestFactoryManager_ExplicitREECostOverridesModifier(t *testing.T) {
	fx := newManagerFixture(t)
	require.NoError(t, fx.validator.SetFactionModifier(red, 2.0))
	factory := fx.combat(t, red, 0)

	job, err := fx.manager.QueueUnit(factory.ID(), "drone", production.WithREECost(10))
	require.NoError(t, err)

	assert.Equal(t, 10.0, job.REECost())
}
