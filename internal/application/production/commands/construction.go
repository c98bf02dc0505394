package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// StartConstructionCommand opens a construction site
type StartConstructionCommand struct {
	FactionID   int
	FactoryType string
	Position    shared.Vector3
	DistrictID  string
	Builders    []int64
}

// StartConstructionResponse identifies the new site
type StartConstructionResponse struct {
	SiteID int64
}

type StartConstructionHandler struct {
	world *appProduction.World
}

func NewStartConstructionHandler(world *appProduction.World) *StartConstructionHandler {
	return &StartConstructionHandler{world: world}
}

func (h *StartConstructionHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*StartConstructionCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *StartConstructionCommand")
	}
	factionID, err := shared.NewFactionID(cmd.FactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid faction ID: %w", err)
	}
	factoryType, err := catalog.ParseFactoryType(cmd.FactoryType)
	if err != nil {
		return nil, err
	}

	site, err := h.world.Construction.StartConstruction(cmd.Position, factionID, cmd.DistrictID, factoryType)
	if err != nil {
		return nil, fmt.Errorf("failed to start construction: %w", err)
	}
	for _, builder := range cmd.Builders {
		if err := h.world.Construction.AddBuilder(site.ID(), builder); err != nil {
			return nil, err
		}
	}
	return &StartConstructionResponse{SiteID: int64(site.ID())}, nil
}

// AssignBuilderCommand attaches or detaches a builder on a site
type AssignBuilderCommand struct {
	SiteID    int64
	BuilderID int64
	Remove    bool
}

type AssignBuilderHandler struct {
	world *appProduction.World
}

func NewAssignBuilderHandler(world *appProduction.World) *AssignBuilderHandler {
	return &AssignBuilderHandler{world: world}
}

func (h *AssignBuilderHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*AssignBuilderCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AssignBuilderCommand")
	}
	siteID := construction.SiteID(cmd.SiteID)
	if cmd.Remove {
		return nil, h.world.Construction.RemoveBuilder(siteID, cmd.BuilderID)
	}
	return nil, h.world.Construction.AddBuilder(siteID, cmd.BuilderID)
}

// CancelConstructionCommand abandons a construction site
type CancelConstructionCommand struct {
	SiteID int64
}

type CancelConstructionHandler struct {
	world *appProduction.World
}

func NewCancelConstructionHandler(world *appProduction.World) *CancelConstructionHandler {
	return &CancelConstructionHandler{world: world}
}

func (h *CancelConstructionHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*CancelConstructionCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *CancelConstructionCommand")
	}
	return nil, h.world.Construction.CancelConstruction(construction.SiteID(cmd.SiteID))
}

// PlaceFactoryCommand creates a factory immediately, skipping buildout
type PlaceFactoryCommand struct {
	FactionID   int
	FactoryType string
	Position    shared.Vector3
	DistrictID  string
}

// PlaceFactoryResponse identifies the placed factory
type PlaceFactoryResponse struct {
	FactoryID int64
}

type PlaceFactoryHandler struct {
	world *appProduction.World
}

func NewPlaceFactoryHandler(world *appProduction.World) *PlaceFactoryHandler {
	return &PlaceFactoryHandler{world: world}
}

func (h *PlaceFactoryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*PlaceFactoryCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *PlaceFactoryCommand")
	}
	factionID, err := shared.NewFactionID(cmd.FactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid faction ID: %w", err)
	}
	factoryType, err := catalog.ParseFactoryType(cmd.FactoryType)
	if err != nil {
		return nil, err
	}
	f, err := h.world.Coordinator.PlaceFactory(factoryType, factionID, cmd.Position, cmd.DistrictID)
	if err != nil {
		return nil, fmt.Errorf("failed to place factory: %w", err)
	}
	return &PlaceFactoryResponse{FactoryID: int64(f.ID())}, nil
}
