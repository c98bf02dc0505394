package production_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/production"
)

func instantRampConfig() production.OverclockConfig {
	cfg := production.DefaultOverclockConfig()
	cfg.RampRate = 0
	return cfg
}

func TestOverclock_EnterRequiresTargetAboveOne(t *testing.T) {
	o := production.NewProductionOverclock(instantRampConfig())

	raised, err := o.SetTarget(1.0)
	require.NoError(t, err)
	assert.Empty(t, raised)
	assert.Equal(t, production.OverclockNormal, o.State())

	raised, err = o.SetTarget(1.5)
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.EventOverclockStarted}, raised)
	assert.Equal(t, production.OverclockOverclocked, o.State())
}

func TestOverclock_RejectsTargetOutOfRange(t *testing.T) {
	o := production.NewProductionOverclock(instantRampConfig())

	_, err := o.SetTarget(2.5)
	var invalid *production.ErrInvalidOverclock
	require.ErrorAs(t, err, &invalid)

	_, err = o.SetTarget(0.5)
	assert.Error(t, err)
}

func TestOverclock_TargetOneStopsImmediately(t *testing.T) {
	o := production.NewProductionOverclock(instantRampConfig())
	_, _ = o.SetTarget(2.0)
	o.Update(1.0)

	raised, err := o.SetTarget(1.0)

	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.EventOverclockStopped}, raised)
	assert.Equal(t, production.OverclockNormal, o.State())
	assert.Equal(t, 1.0, o.SpeedMultiplier())
	assert.Equal(t, 10.0, o.Heat(), "heat is kept and dissipates in NORMAL")

	o.Update(1.0)
	assert.Equal(t, 5.0, o.Heat())
}

func TestOverclock_RampsTowardTarget(t *testing.T) {
	o := production.NewProductionOverclock(production.DefaultOverclockConfig())
	_, _ = o.SetTarget(2.0)

	o.Update(1.0)
	assert.InDelta(t, 1.5, o.SpeedMultiplier(), 1e-9)

	o.Update(1.0)
	o.Update(1.0)
	assert.InDelta(t, 2.0, o.SpeedMultiplier(), 1e-9)
}

func TestOverclock_MeltdownCycle(t *testing.T) {
	// Arrange
	o := production.NewProductionOverclock(instantRampConfig())
	_, err := o.SetTarget(2.0)
	require.NoError(t, err)

	// Act: nine seconds at full overclock
	var raised []events.EventType
	for i := 0; i < 9; i++ {
		raised = append(raised, o.Update(1.0)...)
	}

	// Assert
	assert.Equal(t, production.OverclockOverclocked, o.State())
	assert.Equal(t, 90.0, o.Heat())
	assert.Equal(t, []events.EventType{events.EventHeatWarning}, raised, "one warning per excursion")

	// Act: tenth second reaches max heat
	raised = o.Update(1.0)

	// Assert
	assert.Equal(t, []events.EventType{events.EventMeltdownStarted}, raised)
	assert.Equal(t, production.OverclockMeltdown, o.State())
	assert.Equal(t, 100.0, o.Heat())
	assert.Equal(t, 1.0, o.HeatFraction())
	assert.Equal(t, 10.0, o.MeltdownRemaining())

	for i := 0; i < 9; i++ {
		o.Update(1.0)
		assert.Equal(t, 0.0, o.SpeedMultiplier())
		assert.Equal(t, 100.0, o.Heat())
	}

	raised = o.Update(1.0)
	assert.Equal(t, []events.EventType{events.EventMeltdownRecovered}, raised)
	assert.Equal(t, production.OverclockCooldown, o.State())
	assert.Equal(t, 50.0, o.Heat())
	assert.Equal(t, 1.0, o.SpeedMultiplier())

	_, err = o.SetTarget(2.0)
	assert.Error(t, err, "overclock is locked while cooling down")

	for i := 0; i < 4; i++ {
		o.Update(1.0)
		assert.Equal(t, production.OverclockCooldown, o.State())
	}
	o.Update(1.0)
	assert.Equal(t, production.OverclockNormal, o.State())
	assert.Equal(t, 0.0, o.Heat())
}

func TestOverclock_WarningRearmsAfterNormal(t *testing.T) {
	o := production.NewProductionOverclock(instantRampConfig())
	_, _ = o.SetTarget(2.0)
	for i := 0; i < 8; i++ {
		o.Update(1.0)
	}
	_, _ = o.SetTarget(1.0)
	_, _ = o.SetTarget(2.0)

	raised := o.Update(1.0)

	assert.Contains(t, raised, events.EventHeatWarning)
}

func TestAdvanceOverclock_HeatStaysBounded(t *testing.T) {
	cfg := instantRampConfig()
	s := production.InitialOverclockStatus()
	s, _, err := production.RetargetOverclock(s, cfg, 2.0)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		s, _ = production.AdvanceOverclock(s, cfg, 0.75)
		assert.GreaterOrEqual(t, s.Heat, 0.0)
		assert.LessOrEqual(t, s.Heat, cfg.MaxHeat)
		if s.Heat == cfg.MaxHeat {
			assert.Equal(t, production.OverclockMeltdown, s.State)
		}
	}
}

func TestOverclock_MapRoundTrip(t *testing.T) {
	o := production.NewProductionOverclock(instantRampConfig())
	_, _ = o.SetTarget(1.8)
	o.Update(2.5)

	restored, err := production.ProductionOverclockFromMap(o.ToMap())

	require.NoError(t, err)
	assert.Equal(t, o.Status(), restored.Status())
	assert.Equal(t, o.Config(), restored.Config())
}
