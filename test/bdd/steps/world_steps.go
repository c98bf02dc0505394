package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/production/commands"
	"github.com/andrescamacho/rts-production/internal/application/production/queries"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/test/helpers"
)

// worldContext exercises the production core through the command bus only
type worldContext struct {
	ctx       context.Context
	world     *appProduction.World
	mediator  mediator.Mediator
	tickDelta float64
	factories map[string]int64

	accepted int
	refused  int
}

func (wc *worldContext) reset() {
	wc.ctx = context.Background()
	wc.world = nil
	wc.mediator = nil
	wc.tickDelta = 0.5
	wc.factories = make(map[string]int64)
	wc.accepted = 0
	wc.refused = 0
}

func (wc *worldContext) send(request mediator.Request) (mediator.Response, error) {
	if wc.mediator == nil {
		return nil, fmt.Errorf("no world available")
	}
	return wc.mediator.Send(wc.ctx, request)
}

func (wc *worldContext) economy(faction int) (*queries.GetFactionEconomyResponse, error) {
	resp, err := wc.send(&queries.GetFactionEconomyQuery{FactionID: faction})
	if err != nil {
		return nil, err
	}
	return resp.(*queries.GetFactionEconomyResponse), nil
}

func (wc *worldContext) factoryID(name string) (int64, error) {
	id, ok := wc.factories[name]
	if !ok {
		return 0, fmt.Errorf("unknown factory %q", name)
	}
	return id, nil
}

func (wc *worldContext) factoryView(name string) (*queries.FactoryView, error) {
	id, err := wc.factoryID(name)
	if err != nil {
		return nil, err
	}
	resp, err := wc.send(&queries.ListFactoriesQuery{})
	if err != nil {
		return nil, err
	}
	for _, f := range resp.(*queries.ListFactoriesResponse).Factories {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("factory %q (%d) is not live", name, id)
}

func (wc *worldContext) attach(world *appProduction.World) error {
	m := mediator.NewMediator()
	if err := commands.RegisterHandlers(m, world); err != nil {
		return err
	}
	if err := queries.RegisterHandlers(m, world); err != nil {
		return err
	}
	wc.world = world
	wc.mediator = m
	return nil
}

func (wc *worldContext) saves() (*persistence.GormSaveRepository, error) {
	if helpers.SharedTestDB == nil {
		return nil, fmt.Errorf("shared test database not initialized")
	}
	return persistence.NewGormSaveRepository(helpers.SharedTestDB), nil
}

// Given steps

func (wc *worldContext) aWorldWithFactions(table *godog.Table) error {
	world, err := appProduction.NewWorld(catalog.Default(), appProduction.DefaultWorldConfig())
	if err != nil {
		return err
	}
	if err := wc.attach(world); err != nil {
		return err
	}

	for _, row := range table.Rows[1:] {
		faction, err := strconv.Atoi(getCellValueFromTable(table, row, "faction"))
		if err != nil {
			return fmt.Errorf("invalid faction: %w", err)
		}
		ree, err := floatFromTable(table, row, "ree")
		if err != nil {
			return err
		}
		power, err := floatFromTable(table, row, "power")
		if err != nil {
			return err
		}
		if _, err := wc.send(&commands.DepositCommand{FactionID: faction, REE: ree, Power: power}); err != nil {
			return err
		}
	}
	return nil
}

func (wc *worldContext) theWorldTicksEvery(seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("tick delta must be positive")
	}
	wc.tickDelta = seconds
	return nil
}

func (wc *worldContext) factionPlacesAFactory(faction int, factoryType, name string, x, y, z float64) error {
	resp, err := wc.send(&commands.PlaceFactoryCommand{
		FactionID:   faction,
		FactoryType: factoryType,
		Position:    shared.NewVector3(x, y, z),
	})
	if err != nil {
		return err
	}
	wc.factories[name] = resp.(*commands.PlaceFactoryResponse).FactoryID
	return nil
}

// When steps

func (wc *worldContext) factionQueuesUnitsOn(faction, count int, unitType, name string) error {
	id, err := wc.factoryID(name)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if _, err := wc.send(&commands.QueueUnitCommand{FactoryID: id, UnitType: unitType}); err != nil {
			wc.refused++
			continue
		}
		wc.accepted++
	}
	return nil
}

func (wc *worldContext) theWorldAdvancesSeconds(seconds float64) error {
	ticks := int(math.Round(seconds / wc.tickDelta))
	_, err := wc.send(&commands.AdvanceCommand{Ticks: ticks, Delta: wc.tickDelta})
	return err
}

func (wc *worldContext) factionStartsASiteWithBuilders(faction int, factoryType string, x, y, z float64, builders string) error {
	var ids []int64
	for _, raw := range integerPattern.FindAllString(builders, -1) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	_, err := wc.send(&commands.StartConstructionCommand{
		FactionID:   faction,
		FactoryType: factoryType,
		Position:    shared.NewVector3(x, y, z),
		Builders:    ids,
	})
	return err
}

func (wc *worldContext) factoryTakesDamage(name string, amount float64) error {
	id, err := wc.factoryID(name)
	if err != nil {
		return err
	}
	_, err = wc.send(&commands.DamageFactoryCommand{FactoryID: id, Amount: amount})
	return err
}

func (wc *worldContext) theWorldIsPaused() error {
	_, err := wc.send(&commands.SetSpeedCommand{Paused: true})
	return err
}

func (wc *worldContext) theWorldResumesAtSpeed(multiplier float64) error {
	_, err := wc.send(&commands.SetSpeedCommand{Multiplier: multiplier})
	return err
}

func (wc *worldContext) theWorldIsSavedToSlot(slot string) error {
	repo, err := wc.saves()
	if err != nil {
		return err
	}
	return repo.Save(wc.ctx, slot, wc.world.Snapshot())
}

func (wc *worldContext) theWorldIsReloadedFromSlot(slot string) error {
	repo, err := wc.saves()
	if err != nil {
		return err
	}
	snapshot, err := repo.Load(wc.ctx, slot)
	if err != nil {
		return err
	}
	world, err := appProduction.RestoreWorld(snapshot, catalog.Default(), appProduction.DefaultWorldConfig())
	if err != nil {
		return err
	}
	return wc.attach(world)
}

// Then steps

func (wc *worldContext) loadingSlotFailsAsNotFound(slot string) error {
	repo, err := wc.saves()
	if err != nil {
		return err
	}
	_, err = repo.Load(wc.ctx, slot)
	var notFound *persistence.ErrSaveSlotNotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("expected ErrSaveSlotNotFound, got %v", err)
	}
	return nil
}

func (wc *worldContext) ordersWereAcceptedAndRefused(accepted, refused int) error {
	if wc.accepted != accepted || wc.refused != refused {
		return fmt.Errorf("expected %d accepted and %d refused, got %d and %d", accepted, refused, wc.accepted, wc.refused)
	}
	return nil
}

func (wc *worldContext) factionHasSpendableREEWithReserved(faction int, spendable, reserved float64) error {
	eco, err := wc.economy(faction)
	if err != nil {
		return err
	}
	if math.Abs(eco.SpendableREE-spendable) > stepTolerance || math.Abs(eco.ReservedREE-reserved) > stepTolerance {
		return fmt.Errorf("expected %.2f spendable with %.2f reserved, got %.2f with %.2f",
			spendable, reserved, eco.SpendableREE, eco.ReservedREE)
	}
	return nil
}

func (wc *worldContext) unitsHaveBeenProduced(n int, unitType string) error {
	resp, err := wc.send(&queries.GetStatisticsQuery{})
	if err != nil {
		return err
	}
	if got := resp.(*queries.GetStatisticsResponse).Statistics.ProducedByType[unitType]; got != n {
		return fmt.Errorf("expected %d %s produced, got %d", n, unitType, got)
	}
	return nil
}

func (wc *worldContext) factionHoldsREEAndPower(faction int, ree, power float64) error {
	eco, err := wc.economy(faction)
	if err != nil {
		return err
	}
	if math.Abs(eco.Balance.REE-ree) > stepTolerance || math.Abs(eco.Balance.Power-power) > stepTolerance {
		return fmt.Errorf("expected %.2f REE and %.2f power, got %.2f and %.2f", ree, power, eco.Balance.REE, eco.Balance.Power)
	}
	return nil
}

func (wc *worldContext) factionHasFailedAttempts(faction, n int) error {
	eco, err := wc.economy(faction)
	if err != nil {
		return err
	}
	if eco.FailedAttempts != n {
		return fmt.Errorf("expected %d failed attempts, got %d", n, eco.FailedAttempts)
	}
	return nil
}

func (wc *worldContext) factionOwnsFactories(faction, n int) error {
	eco, err := wc.economy(faction)
	if err != nil {
		return err
	}
	if eco.Factories != n {
		return fmt.Errorf("expected faction %d to own %d factories, got %d", faction, n, eco.Factories)
	}
	return nil
}

func (wc *worldContext) theFactoryAtIsKnownAs(x, y, z float64, name string) error {
	resp, err := wc.send(&queries.ListFactoriesQuery{})
	if err != nil {
		return err
	}
	at := shared.NewVector3(x, y, z)
	for _, f := range resp.(*queries.ListFactoriesResponse).Factories {
		if f.Position.DistanceTo(at) < stepTolerance {
			wc.factories[name] = f.ID
			return nil
		}
	}
	return fmt.Errorf("no factory at %v", at)
}

func (wc *worldContext) factionIsEliminated(faction int) error {
	eco, err := wc.economy(faction)
	if err != nil {
		return err
	}
	if !eco.Eliminated {
		return fmt.Errorf("expected faction %d to be eliminated", faction)
	}
	return nil
}

func (wc *worldContext) factoryIsBuildingAtProgress(name, unitType string, progress float64) error {
	view, err := wc.factoryView(name)
	if err != nil {
		return err
	}
	if view.CurrentUnit != unitType {
		return fmt.Errorf("expected %s to be building %s, got %q", name, unitType, view.CurrentUnit)
	}
	if math.Abs(view.Progress-progress) > stepTolerance {
		return fmt.Errorf("expected progress %.3f, got %.3f", progress, view.Progress)
	}
	return nil
}

func InitializeWorldScenario(ctx *godog.ScenarioContext) {
	wc := &worldContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		wc.reset()
		if helpers.SharedTestDB != nil {
			return ctx, helpers.TruncateAllTables()
		}
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a world with factions:$`, wc.aWorldWithFactions)
	ctx.Step(`^the world ticks every (\d+(?:\.\d+)?) seconds$`, wc.theWorldTicksEvery)
	ctx.Step(`^faction (\d+) places a "([^"]*)" factory "([^"]*)" at `+vectorPattern+`$`, wc.factionPlacesAFactory)

	// When steps
	ctx.Step(`^faction (\d+) queues (\d+) "([^"]*)" on "([^"]*)"$`, wc.factionQueuesUnitsOn)
	ctx.Step(`^the world advances (\d+(?:\.\d+)?) seconds$`, wc.theWorldAdvancesSeconds)
	ctx.Step(`^faction (\d+) starts a "([^"]*)" site at `+vectorPattern+` with builders ([\d, and]+)$`, wc.factionStartsASiteWithBuilders)
	ctx.Step(`^"([^"]*)" takes (\d+(?:\.\d+)?) damage$`, wc.factoryTakesDamage)
	ctx.Step(`^the world is paused$`, wc.theWorldIsPaused)
	ctx.Step(`^the world is saved to slot "([^"]*)"$`, wc.theWorldIsSavedToSlot)
	ctx.Step(`^the world is reloaded from slot "([^"]*)"$`, wc.theWorldIsReloadedFromSlot)
	ctx.Step(`^the world resumes at (\d+(?:\.\d+)?)x speed$`, wc.theWorldResumesAtSpeed)

	// Then steps
	ctx.Step(`^(\d+) orders were accepted and (\d+) refused$`, wc.ordersWereAcceptedAndRefused)
	ctx.Step(`^faction (\d+) has (\d+(?:\.\d+)?) spendable REE with (\d+(?:\.\d+)?) reserved$`, wc.factionHasSpendableREEWithReserved)
	ctx.Step(`^(\d+) "([^"]*)" units? (?:has|have) been produced$`, wc.unitsHaveBeenProduced)
	ctx.Step(`^faction (\d+) holds (\d+(?:\.\d+)?) REE and (\d+(?:\.\d+)?) power$`, wc.factionHoldsREEAndPower)
	ctx.Step(`^faction (\d+) has (\d+) failed attempts?$`, wc.factionHasFailedAttempts)
	ctx.Step(`^faction (\d+) owns (\d+) factor(?:y|ies)$`, wc.factionOwnsFactories)
	ctx.Step(`^the factory at `+vectorPattern+` is known as "([^"]*)"$`, wc.theFactoryAtIsKnownAs)
	ctx.Step(`^faction (\d+) is eliminated$`, wc.factionIsEliminated)
	ctx.Step(`^loading slot "([^"]*)" fails as not found$`, wc.loadingSlotFailsAsNotFound)
	ctx.Step(`^"([^"]*)" is building "([^"]*)" at progress (\d+(?:\.\d+)?)$`, wc.factoryIsBuildingAtProgress)
}
