package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	domainProduction "github.com/andrescamacho/rts-production/internal/domain/production"
)

// SetOverclockCommand sets a factory's overclock target multiplier
type SetOverclockCommand struct {
	FactoryID int64
	Target    float64
}

type SetOverclockHandler struct {
	world *appProduction.World
}

func NewSetOverclockHandler(world *appProduction.World) *SetOverclockHandler {
	return &SetOverclockHandler{world: world}
}

func (h *SetOverclockHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SetOverclockCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SetOverclockCommand")
	}
	if err := h.world.Controller.SetOverclock(domainProduction.FactoryID(cmd.FactoryID), cmd.Target); err != nil {
		return nil, fmt.Errorf("failed to overclock factory %d: %w", cmd.FactoryID, err)
	}
	return nil, nil
}

// UpgradeFactoryCommand raises a factory's upgrade level by one
type UpgradeFactoryCommand struct {
	FactoryID int64
}

// UpgradeFactoryResponse reports the level reached
type UpgradeFactoryResponse struct {
	Level int
}

type UpgradeFactoryHandler struct {
	world *appProduction.World
}

func NewUpgradeFactoryHandler(world *appProduction.World) *UpgradeFactoryHandler {
	return &UpgradeFactoryHandler{world: world}
}

func (h *UpgradeFactoryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*UpgradeFactoryCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *UpgradeFactoryCommand")
	}
	id := domainProduction.FactoryID(cmd.FactoryID)
	if err := h.world.Manager.UpgradeFactory(id); err != nil {
		return nil, fmt.Errorf("failed to upgrade factory %d: %w", cmd.FactoryID, err)
	}
	f, _ := h.world.Manager.Factory(id)
	return &UpgradeFactoryResponse{Level: f.UpgradeLevel()}, nil
}

// DamageFactoryCommand applies damage to a factory; negative amounts repair it
type DamageFactoryCommand struct {
	FactoryID int64
	Amount    float64
}

// DamageFactoryResponse reports whether the factory was destroyed
type DamageFactoryResponse struct {
	Destroyed bool
}

type DamageFactoryHandler struct {
	world *appProduction.World
}

func NewDamageFactoryHandler(world *appProduction.World) *DamageFactoryHandler {
	return &DamageFactoryHandler{world: world}
}

func (h *DamageFactoryHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*DamageFactoryCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *DamageFactoryCommand")
	}
	id := domainProduction.FactoryID(cmd.FactoryID)
	if cmd.Amount < 0 {
		if err := h.world.Manager.RepairFactory(id, -cmd.Amount); err != nil {
			return nil, fmt.Errorf("failed to repair factory %d: %w", cmd.FactoryID, err)
		}
		return &DamageFactoryResponse{}, nil
	}
	destroyed, err := h.world.Manager.DamageFactory(id, cmd.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to damage factory %d: %w", cmd.FactoryID, err)
	}
	return &DamageFactoryResponse{Destroyed: destroyed}, nil
}
