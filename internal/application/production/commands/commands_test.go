package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/production/commands"
	"github.com/andrescamacho/rts-production/internal/application/production/queries"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

func newMediator(t *testing.T) (mediator.Mediator, *appProduction.World) {
	t.Helper()
	world, err := appProduction.NewWorld(catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)
	m := mediator.NewMediator()
	require.NoError(t, commands.RegisterHandlers(m, world))
	require.NoError(t, queries.RegisterHandlers(m, world))
	return m, world
}

func send[T any](t *testing.T, m mediator.Mediator, request mediator.Request) T {
	t.Helper()
	resp, err := m.Send(context.Background(), request)
	require.NoError(t, err)
	typed, ok := resp.(T)
	require.True(t, ok, "unexpected response %T", resp)
	return typed
}

func TestCommands_QueueAndProduceThroughMediator(t *testing.T) {
	// Arrange
	ctx := context.Background()
	m, _ := newMediator(t)
	_, err := m.Send(ctx, &commands.DepositCommand{FactionID: 1, REE: 500, Power: 1000})
	require.NoError(t, err)
	placed := send[*commands.PlaceFactoryResponse](t, m, &commands.PlaceFactoryCommand{
		FactionID:   1,
		FactoryType: "combat",
		Position:    shared.NewVector3(0, 0, 0),
	})

	// Act
	queued := send[*commands.QueueUnitResponse](t, m, &commands.QueueUnitCommand{FactoryID: placed.FactoryID, UnitType: "soldier"})
	advanced := send[*commands.AdvanceResponse](t, m, &commands.AdvanceCommand{Ticks: 8, Delta: 0.5})

	// Assert
	assert.NotEmpty(t, queued.TransactionID)
	assert.Equal(t, 1, advanced.UnitsCompleted)
	assert.Equal(t, 4.0, advanced.SimulatedSeconds)

	economy := send[*queries.GetFactionEconomyResponse](t, m, &queries.GetFactionEconomyQuery{FactionID: 1})
	assert.Equal(t, 425.0, economy.Balance.REE)
	assert.Equal(t, 1, economy.UnitsProduced)
	assert.Equal(t, 0.0, economy.ReservedREE)
	assert.Equal(t, 1, economy.Factories)
}

func TestCommands_ConstructionAndFactoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m, world := newMediator(t)

	site := send[*commands.StartConstructionResponse](t, m, &commands.StartConstructionCommand{
		FactionID:   2,
		FactoryType: "SUPPORT",
		Position:    shared.NewVector3(100, 0, 100),
		Builders:    []int64{1, 2, 3},
	})
	advanced := send[*commands.AdvanceResponse](t, m, &commands.AdvanceCommand{Ticks: 20, Delta: 1.0})
	require.Equal(t, 1, advanced.FactoriesBuilt)

	list := send[*queries.ListFactoriesResponse](t, m, &queries.ListFactoriesQuery{FactionID: 2})
	require.Len(t, list.Factories, 1)
	factoryID := list.Factories[0].ID
	assert.Equal(t, "SUPPORT", list.Factories[0].Type)
	assert.NotZero(t, site.SiteID)

	upgraded := send[*commands.UpgradeFactoryResponse](t, m, &commands.UpgradeFactoryCommand{FactoryID: factoryID})
	assert.Equal(t, 1, upgraded.Level)

	damaged := send[*commands.DamageFactoryResponse](t, m, &commands.DamageFactoryCommand{FactoryID: factoryID, Amount: 5000})
	assert.True(t, damaged.Destroyed)
	assert.True(t, world.Manager.IsEliminated(shared.MustNewFactionID(2)))

	_, err := m.Send(ctx, &commands.UpgradeFactoryCommand{FactoryID: factoryID})
	assert.Error(t, err)
}

func TestCommands_SpeedAndPause(t *testing.T) {
	ctx := context.Background()
	m, _ := newMediator(t)

	_, err := m.Send(ctx, &commands.SetSpeedCommand{Multiplier: 3, Paused: false})
	require.NoError(t, err)
	advanced := send[*commands.AdvanceResponse](t, m, &commands.AdvanceCommand{Ticks: 2, Delta: 1})
	assert.Equal(t, 6.0, advanced.SimulatedSeconds)

	_, err = m.Send(ctx, &commands.SetSpeedCommand{Paused: true})
	require.NoError(t, err)
	advanced = send[*commands.AdvanceResponse](t, m, &commands.AdvanceCommand{Ticks: 2, Delta: 1})
	assert.Equal(t, 0.0, advanced.SimulatedSeconds)

	stats := send[*queries.GetStatisticsResponse](t, m, &queries.GetStatisticsQuery{})
	assert.True(t, stats.Paused)
	assert.Equal(t, 3.0, stats.SpeedMultiplier)
	assert.Equal(t, 2, stats.Statistics.Ticks)
}

func TestCommands_RejectInvalidInput(t *testing.T) {
	ctx := context.Background()
	m, _ := newMediator(t)

	_, err := m.Send(ctx, &commands.PlaceFactoryCommand{FactionID: 1, FactoryType: "SHIPYARD"})
	assert.Error(t, err)
	_, err = m.Send(ctx, &commands.QueueUnitCommand{FactoryID: 42, UnitType: "drone"})
	assert.Error(t, err)
	_, err = m.Send(ctx, &commands.DepositCommand{FactionID: 0, REE: 10})
	assert.Error(t, err)
	_, err = m.Send(ctx, &commands.AdvanceCommand{Ticks: -1})
	assert.Error(t, err)
}
