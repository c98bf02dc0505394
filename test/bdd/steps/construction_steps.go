package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

var integerPattern = regexp.MustCompile(`\d+`)

type constructionContext struct {
	registry  *construction.FactoryConstruction
	districts construction.StaticDistricts
	sites     map[string]*construction.ConstructionSite
	lastErr   error
}

func (cc *constructionContext) reset() {
	cc.registry = nil
	cc.districts = nil
	cc.sites = make(map[string]*construction.ConstructionSite)
	cc.lastErr = nil
}

func (cc *constructionContext) rebuild() {
	var oracle construction.DistrictOracle
	if cc.districts != nil {
		oracle = cc.districts
	}
	cc.registry = construction.NewFactoryConstruction(construction.DefaultConfig(), oracle)
}

// Given steps

func (cc *constructionContext) aConstructionRegistryWithTheDefaultPlacementRules() error {
	cc.rebuild()
	return nil
}

func (cc *constructionContext) districtsAreControlledAsFollows(table *godog.Table) error {
	if len(cc.registry.Sites()) > 0 {
		return fmt.Errorf("districts must be declared before any site opens")
	}
	cc.districts = construction.StaticDistricts{}
	for _, row := range table.Rows[1:] {
		faction, err := strconv.Atoi(getCellValueFromTable(table, row, "faction"))
		if err != nil {
			return fmt.Errorf("invalid faction: %w", err)
		}
		factionID, err := shared.NewFactionID(faction)
		if err != nil {
			return err
		}
		cc.districts[getCellValueFromTable(table, row, "district")] = factionID
	}
	cc.rebuild()
	return nil
}

func (cc *constructionContext) factionAlreadyOwnsFactoriesAt(faction int, table *godog.Table) error {
	factionID, err := shared.NewFactionID(faction)
	if err != nil {
		return err
	}
	for _, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(getCellValueFromTable(table, row, "id"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid factory id: %w", err)
		}
		pos, err := vectorFromTableRow(table, row)
		if err != nil {
			return err
		}
		cc.registry.RegisterExistingFactory(id, pos, factionID)
	}
	return nil
}

// When steps

func (cc *constructionContext) factionOpensSite(faction int, name string, x, y, z float64, district string) error {
	site, err := cc.open(faction, x, y, z, district)
	if err != nil {
		return err
	}
	cc.sites[name] = site
	return nil
}

func (cc *constructionContext) factionTriesToOpenASite(faction int, x, y, z float64, district string) error {
	_, cc.lastErr = cc.open(faction, x, y, z, district)
	return nil
}

func (cc *constructionContext) open(faction int, x, y, z float64, district string) (*construction.ConstructionSite, error) {
	factionID, err := shared.NewFactionID(faction)
	if err != nil {
		return nil, err
	}
	return cc.registry.StartConstruction(shared.NewVector3(x, y, z), factionID, district, catalog.FactoryTypeCombat)
}

func (cc *constructionContext) buildersJoinOrLeaveSite(builders, action, name string) error {
	site, ok := cc.sites[name]
	if !ok {
		return fmt.Errorf("unknown site %q", name)
	}
	for _, raw := range integerPattern.FindAllString(builders, -1) {
		builder, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		if action == "join" {
			err = cc.registry.AddBuilder(site.ID(), builder)
		} else {
			err = cc.registry.RemoveBuilder(site.ID(), builder)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (cc *constructionContext) constructionAdvancesSeconds(seconds float64) error {
	cc.registry.Update(seconds)
	return nil
}

// Then steps

func (cc *constructionContext) thePlacementIsRejectedWithAReasonContaining(fragment string) error {
	var invalid *construction.ErrInvalidPlacement
	if !errors.As(cc.lastErr, &invalid) {
		return fmt.Errorf("expected ErrInvalidPlacement, got %v", cc.lastErr)
	}
	return expectErrorContaining(invalid, fragment)
}

func (cc *constructionContext) siteIs(name, status string) error {
	site, ok := cc.sites[name]
	if !ok {
		return fmt.Errorf("unknown site %q", name)
	}
	if string(site.Status()) != status {
		return fmt.Errorf("expected site %s to be %s, got %s", name, status, site.Status())
	}
	return nil
}

func (cc *constructionContext) siteProgressIs(name string, progress float64) error {
	site, ok := cc.sites[name]
	if !ok {
		return fmt.Errorf("unknown site %q", name)
	}
	if math.Abs(site.Progress()-progress) > stepTolerance {
		return fmt.Errorf("expected site %s progress %.3f, got %.3f", name, progress, site.Progress())
	}
	return nil
}

func InitializeConstructionScenario(ctx *godog.ScenarioContext) {
	cc := &constructionContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		cc.reset()
		return ctx, nil
	})

	ctx.Step(`^a construction registry with the default placement rules$`, cc.aConstructionRegistryWithTheDefaultPlacementRules)
	ctx.Step(`^districts are controlled as follows:$`, cc.districtsAreControlledAsFollows)
	ctx.Step(`^faction (\d+) already owns factories at:$`, cc.factionAlreadyOwnsFactoriesAt)

	ctx.Step(`^faction (\d+) opens site "([^"]*)" at `+vectorPattern+`(?: in district "([^"]*)")?$`, cc.factionOpensSite)
	ctx.Step(`^faction (\d+) tries to open a site at `+vectorPattern+`(?: in district "([^"]*)")?$`, cc.factionTriesToOpenASite)
	ctx.Step(`^builders ([\d, and]+) (join|leave) site "([^"]*)"$`, cc.buildersJoinOrLeaveSite)
	ctx.Step(`^construction advances (\d+(?:\.\d+)?) seconds$`, cc.constructionAdvancesSeconds)

	ctx.Step(`^the placement is rejected with a reason containing "([^"]*)"$`, cc.thePlacementIsRejectedWithAReasonContaining)
	ctx.Step(`^site "([^"]*)" is "([^"]*)"$`, cc.siteIs)
	ctx.Step(`^site "([^"]*)" progress is (\d+(?:\.\d+)?)$`, cc.siteProgressIs)
}
