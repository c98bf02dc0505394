package production_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

const unlimited = 1e12

func newCombatFactory(t *testing.T) *production.Factory {
	t.Helper()
	f, err := production.NewFactory(
		7,
		catalog.FactoryTypeCombat,
		shared.MustNewFactionID(1),
		shared.NewVector3(100, 0, -50),
		"north",
		catalog.Default(),
		production.DefaultFactoryConfig(),
	)
	require.NoError(t, err)
	return f
}

func TestFactory_QueueUnitChecksCapability(t *testing.T) {
	f := newCombatFactory(t)

	_, err := f.QueueUnit("harvester")
	var notProduceable *production.ErrUnitNotProduceable
	require.ErrorAs(t, err, &notProduceable)
	assert.Equal(t, catalog.FactoryTypeCombat, notProduceable.FactoryType)

	_, err = f.QueueUnit("battleship")
	var unknown *production.ErrUnknownUnitType
	require.ErrorAs(t, err, &unknown)

	job, err := f.QueueUnit("drone")
	require.NoError(t, err)
	assert.Equal(t, 50.0, job.REECost())
	assert.True(t, f.CanProduce("tank"))
	assert.False(t, f.CanProduce("medic"))
	assert.ElementsMatch(t, []string{"drone", "soldier", "tank", "artillery"}, f.ProduceableUnits())
	assert.Equal(t, production.DefaultMaxResourceWait, f.Queue().MaxWait())
}

func TestFactory_DroneConsumesExactCost(t *testing.T) {
	// Arrange
	f := newCombatFactory(t)
	_, err := f.QueueUnit("drone")
	require.NoError(t, err)
	available := 50.0

	// Act
	var completed []*production.ProductionJob
	consumed := 0.0
	for i := 0; i < 3; i++ {
		result := f.Process(1.0, available-consumed, unlimited)
		consumed += result.REEConsumed
		completed = append(completed, result.Completed...)
	}

	// Assert
	require.Len(t, completed, 1)
	assert.Equal(t, "drone", completed[0].UnitType())
	assert.InDelta(t, 50.0, consumed, 1e-9)
}

func TestFactory_ReservedJobDrawsOnlyPower(t *testing.T) {
	f := newCombatFactory(t)
	_, err := f.QueueUnit("drone", production.WithReservation("tx-1"))
	require.NoError(t, err)

	result := f.Process(1.0, 0, unlimited)

	assert.Equal(t, 0.0, result.REEConsumed)
	assert.Equal(t, 5.0, result.PowerConsumed)
	assert.Equal(t, production.JobStateInProgress, f.CurrentJob().State())
}

func TestFactory_InsufficientPowerPauses(t *testing.T) {
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank")

	result := f.Process(1.0, unlimited, 10)

	assert.Equal(t, production.JobStateAwaitingResources, f.CurrentJob().State())
	assert.Zero(t, result.PowerConsumed)
	assert.Zero(t, result.REEConsumed)
}

func TestFactory_PowerCheckUsesPerSecondDraw(t *testing.T) {
	// Arrange
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank")

	// Act
	result := f.Process(0.1, unlimited, 10)

	// Assert
	assert.Equal(t, production.JobStateAwaitingResources, f.CurrentJob().State())
	assert.Zero(t, result.PowerConsumed)
}

func TestFactory_PowerAtDrawRateAdvancesSmallTicks(t *testing.T) {
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank")

	result := f.Process(0.1, unlimited, 15)

	assert.Equal(t, production.JobStateInProgress, f.CurrentJob().State())
	assert.InDelta(t, 1.5, result.PowerConsumed, 1e-9)
}

func TestFactory_EmitsStartAndQuarterProgress(t *testing.T) {
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank")

	var raised []events.Event
	for i := 0; i < 3; i++ {
		raised = append(raised, f.Process(1.0, unlimited, unlimited).Events...)
	}

	require.Len(t, raised, 2)
	assert.Equal(t, events.EventProductionStarted, raised[0].Type)
	assert.Equal(t, events.EventProductionProgress, raised[1].Type)
	assert.Equal(t, 0.25, raised[1].Value)
	assert.Equal(t, int64(7), raised[1].FactoryID)
}

func TestFactory_MeltdownFreezesQueue(t *testing.T) {
	// Arrange
	cfg := production.DefaultFactoryConfig()
	cfg.Overclock.RampRate = 0
	f, err := production.NewFactory(1, catalog.FactoryTypeCombat, shared.MustNewFactionID(1),
		shared.NewVector3(0, 0, 0), "", catalog.Default(), cfg)
	require.NoError(t, err)
	_, err = f.SetOverclockTarget(2.0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		f.Process(1.0, unlimited, unlimited)
	}
	require.Equal(t, production.OverclockMeltdown, f.OverclockState())

	// Act
	_, err = f.QueueUnit("tank")
	require.NoError(t, err)
	result := f.Process(1.0, unlimited, unlimited)

	// Assert
	assert.Equal(t, 0.0, f.EffectiveSpeed())
	assert.Empty(t, result.Completed)
	assert.Zero(t, result.PowerConsumed)
	assert.Equal(t, production.JobStateQueued, f.CurrentJob().State())
}

func TestFactory_EffectiveSpeedComposesUpgradesAndOverclock(t *testing.T) {
	cfg := production.DefaultFactoryConfig()
	cfg.Overclock.RampRate = 0
	f, err := production.NewFactory(1, catalog.FactoryTypeSupport, shared.MustNewFactionID(1),
		shared.NewVector3(0, 0, 0), "", catalog.Default(), cfg)
	require.NoError(t, err)

	require.NoError(t, f.Upgrade())
	require.NoError(t, f.Upgrade())
	_, err = f.SetOverclockTarget(1.5)
	require.NoError(t, err)
	f.Process(0.1, unlimited, unlimited)

	assert.InDelta(t, 1.5*1.3, f.EffectiveSpeed(), 1e-9)
}

func TestFactory_UpgradeCappedAtThree(t *testing.T) {
	f := newCombatFactory(t)
	f.TakeDamage(500)

	for i := 0; i < production.MaxUpgradeLevel; i++ {
		require.NoError(t, f.Upgrade())
	}
	err := f.Upgrade()

	var maxed *production.ErrMaxUpgradeLevel
	require.ErrorAs(t, err, &maxed)
	assert.Equal(t, 3, f.UpgradeLevel())
	assert.Equal(t, 11, f.Queue().Capacity())
	assert.InDelta(t, 1728.0, f.MaxHealth(), 1e-6)
	assert.InDelta(t, 864.0, f.Health(), 1e-6)
}

func TestFactory_DestructionClearsQueue(t *testing.T) {
	// Arrange
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank")
	_, _ = f.QueueUnit("drone")
	f.Process(1.0, unlimited, unlimited)

	// Act
	discarded, destroyed := f.TakeDamage(5000)

	// Assert
	assert.True(t, destroyed)
	assert.Len(t, discarded, 2)
	assert.Equal(t, 0.0, f.Health())
	assert.True(t, f.IsDestroyed())
	assert.False(t, f.IsOperational())
	assert.Equal(t, 0.0, f.HealthFraction())
	assert.True(t, f.Queue().IsEmpty())

	result := f.Process(1.0, unlimited, unlimited)
	assert.Empty(t, result.Events)

	_, err := f.QueueUnit("drone")
	var destroyedErr *production.ErrFactoryDestroyed
	assert.ErrorAs(t, err, &destroyedErr)
	assert.Error(t, f.Repair(10))
	_, again := f.TakeDamage(1)
	assert.False(t, again)
}

func TestFactory_RepairCapsAtMaxHealth(t *testing.T) {
	f := newCombatFactory(t)
	f.TakeDamage(300)
	assert.InDelta(t, 0.7, f.HealthFraction(), 1e-9)

	require.NoError(t, f.Repair(100))
	assert.Equal(t, 800.0, f.Health())
	require.NoError(t, f.Repair(1000))
	assert.Equal(t, 1000.0, f.Health())
}

func TestFactory_MapRoundTrip(t *testing.T) {
	// Arrange
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("tank", production.WithReservation("tx-7"))
	_, _ = f.QueueUnit("drone")
	require.NoError(t, f.Upgrade())
	_, _ = f.SetOverclockTarget(1.6)
	f.Process(1.5, unlimited, unlimited)
	f.TakeDamage(123.5)

	// Act
	restored, err := production.FactoryFromMap(f.ToMap(), catalog.Default())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, f.ToMap(), restored.ToMap())
}

func TestFactory_MapSurvivesJSON(t *testing.T) {
	f := newCombatFactory(t)
	_, _ = f.QueueUnit("artillery")
	f.Process(2.0, unlimited, unlimited)

	raw, err := json.Marshal(f.ToMap())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := production.FactoryFromMap(decoded, catalog.Default())

	require.NoError(t, err)
	assert.InDelta(t, 0.2, restored.CurrentJob().Progress(), 1e-9)
	assert.Equal(t, production.JobStateInProgress, restored.CurrentJob().State())
}

func TestFactory_SnapshotGolden(t *testing.T) {
	f := newCombatFactory(t)
	_, err := f.QueueUnit("drone")
	require.NoError(t, err)

	raw, err := json.MarshalIndent(f.ToMap(), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "factory_snapshot", append(raw, '\n'))
}
