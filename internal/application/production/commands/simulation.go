package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// AdvanceCommand runs Ticks frames of Delta seconds each
type AdvanceCommand struct {
	Ticks int
	Delta float64
}

// AdvanceResponse totals what the frames produced
type AdvanceResponse struct {
	UnitsCompleted   int
	FactoriesBuilt   int
	REEConsumed      float64
	SimulatedSeconds float64
}

type AdvanceHandler struct {
	world *appProduction.World
}

func NewAdvanceHandler(world *appProduction.World) *AdvanceHandler {
	return &AdvanceHandler{world: world}
}

func (h *AdvanceHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*AdvanceCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AdvanceCommand")
	}
	if cmd.Ticks < 0 || cmd.Delta < 0 {
		return nil, shared.NewValidationError("advance", "ticks and delta must not be negative")
	}

	start := h.world.Clock.Elapsed()
	resp := &AdvanceResponse{}
	for i := 0; i < cmd.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		result, err := h.world.Tick(cmd.Delta)
		resp.UnitsCompleted += len(result.Production.Completed)
		resp.FactoriesBuilt += len(result.Built)
		resp.REEConsumed += result.Production.TotalREE()
		if err != nil {
			return resp, err
		}
	}
	resp.SimulatedSeconds = h.world.Clock.Elapsed() - start
	return resp, nil
}

// SetSpeedCommand changes time dilation and the pause flag
type SetSpeedCommand struct {
	Multiplier float64
	Paused     bool
}

type SetSpeedHandler struct {
	world *appProduction.World
}

func NewSetSpeedHandler(world *appProduction.World) *SetSpeedHandler {
	return &SetSpeedHandler{world: world}
}

func (h *SetSpeedHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SetSpeedCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SetSpeedCommand")
	}
	if cmd.Multiplier > 0 {
		if err := h.world.Controller.SetSpeedMultiplier(cmd.Multiplier); err != nil {
			return nil, err
		}
	}
	if cmd.Paused {
		h.world.Controller.Pause()
	} else {
		h.world.Controller.Resume()
	}
	return nil, nil
}

// DepositCommand credits a faction's REE and power
type DepositCommand struct {
	FactionID int
	REE       float64
	Power     float64
}

type DepositHandler struct {
	world *appProduction.World
}

func NewDepositHandler(world *appProduction.World) *DepositHandler {
	return &DepositHandler{world: world}
}

func (h *DepositHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*DepositCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *DepositCommand")
	}
	factionID, err := shared.NewFactionID(cmd.FactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid faction ID: %w", err)
	}
	if err := h.world.Deposit(factionID, cmd.REE, cmd.Power); err != nil {
		return nil, fmt.Errorf("failed to deposit for faction %d: %w", cmd.FactionID, err)
	}
	return nil, nil
}

// SetFactionModifierCommand scales a faction's unit costs
type SetFactionModifierCommand struct {
	FactionID int
	Modifier  float64
}

type SetFactionModifierHandler struct {
	world *appProduction.World
}

func NewSetFactionModifierHandler(world *appProduction.World) *SetFactionModifierHandler {
	return &SetFactionModifierHandler{world: world}
}

func (h *SetFactionModifierHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SetFactionModifierCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SetFactionModifierCommand")
	}
	factionID, err := shared.NewFactionID(cmd.FactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid faction ID: %w", err)
	}
	return nil, h.world.Validator.SetFactionModifier(factionID, cmd.Modifier)
}
