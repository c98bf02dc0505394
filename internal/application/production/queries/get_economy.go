package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// GetFactionEconomyQuery reports a faction's balances, reservations and analytics
type GetFactionEconomyQuery struct {
	FactionID int
}

// GetFactionEconomyResponse is the economy view for one faction
type GetFactionEconomyResponse struct {
	FactionID      int
	Balance        ledger.Resources
	ReservedREE    float64
	SpendableREE   float64
	CostModifier   float64
	UnitsProduced  int
	REESpent       float64
	FailedAttempts int
	RecentFailures []ledger.FailureRecord
	Factories      int
	Eliminated     bool
}

type GetFactionEconomyHandler struct {
	world *appProduction.World
}

func NewGetFactionEconomyHandler(world *appProduction.World) *GetFactionEconomyHandler {
	return &GetFactionEconomyHandler{world: world}
}

func (h *GetFactionEconomyHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetFactionEconomyQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetFactionEconomyQuery")
	}
	factionID, err := shared.NewFactionID(query.FactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid faction ID: %w", err)
	}

	analytics := h.world.Validator.Analytics(factionID)
	return &GetFactionEconomyResponse{
		FactionID:      query.FactionID,
		Balance:        h.world.Ledger.Available(factionID),
		ReservedREE:    h.world.Validator.ReservedREE(factionID),
		SpendableREE:   h.world.Validator.SpendableREE(factionID),
		CostModifier:   h.world.Validator.FactionModifier(factionID),
		UnitsProduced:  analytics.UnitsProduced,
		REESpent:       analytics.REESpent,
		FailedAttempts: analytics.FailedAttempts,
		RecentFailures: analytics.Failures(),
		Factories:      len(h.world.Manager.FactionFactories(factionID)),
		Eliminated:     h.world.Manager.IsEliminated(factionID),
	}, nil
}

// GetStatisticsQuery returns controller statistics
type GetStatisticsQuery struct{}

// GetStatisticsResponse wraps the statistics with controller settings
type GetStatisticsResponse struct {
	Statistics      appProduction.Statistics
	Paused          bool
	SpeedMultiplier float64
	Elapsed         float64
	PendingReserves int
}

type GetStatisticsHandler struct {
	world *appProduction.World
}

func NewGetStatisticsHandler(world *appProduction.World) *GetStatisticsHandler {
	return &GetStatisticsHandler{world: world}
}

func (h *GetStatisticsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	if _, ok := request.(*GetStatisticsQuery); !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetStatisticsQuery")
	}
	return &GetStatisticsResponse{
		Statistics:      h.world.Controller.Statistics(),
		Paused:          h.world.Controller.IsPaused(),
		SpeedMultiplier: h.world.Controller.SpeedMultiplier(),
		Elapsed:         h.world.Clock.Elapsed(),
		PendingReserves: h.world.Validator.PendingCount(),
	}, nil
}
