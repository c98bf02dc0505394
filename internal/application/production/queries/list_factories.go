package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// ListFactoriesQuery lists live factories, optionally for one faction (0 = all)
type ListFactoriesQuery struct {
	FactionID int
}

// FactoryView is a read-only summary of a factory
type FactoryView struct {
	ID             int64
	Type           string
	FactionID      int
	Position       shared.Vector3
	Health         float64
	MaxHealth      float64
	UpgradeLevel   int
	OverclockState string
	Heat           float64
	Speed          float64
	QueueLength    int
	QueueCapacity  int
	CurrentUnit    string
	Progress       float64
	JobState       string
}

// ListFactoriesResponse holds factories in registration order
type ListFactoriesResponse struct {
	Factories []FactoryView
}

type ListFactoriesHandler struct {
	world *appProduction.World
}

func NewListFactoriesHandler(world *appProduction.World) *ListFactoriesHandler {
	return &ListFactoriesHandler{world: world}
}

func (h *ListFactoriesHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*ListFactoriesQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListFactoriesQuery")
	}

	factories := h.world.Manager.Factories()
	if query.FactionID != 0 {
		factionID, err := shared.NewFactionID(query.FactionID)
		if err != nil {
			return nil, fmt.Errorf("invalid faction ID: %w", err)
		}
		factories = h.world.Manager.FactionFactories(factionID)
	}

	resp := &ListFactoriesResponse{Factories: make([]FactoryView, 0, len(factories))}
	for _, f := range factories {
		view := FactoryView{
			ID:             int64(f.ID()),
			Type:           string(f.Type()),
			FactionID:      f.FactionID().Value(),
			Position:       f.Position(),
			Health:         f.Health(),
			MaxHealth:      f.MaxHealth(),
			UpgradeLevel:   f.UpgradeLevel(),
			OverclockState: string(f.OverclockState()),
			Heat:           f.Overclock().Heat(),
			Speed:          f.EffectiveSpeed(),
			QueueLength:    f.Queue().Len(),
			QueueCapacity:  f.Queue().Capacity(),
		}
		if head := f.CurrentJob(); head != nil {
			view.CurrentUnit = head.UnitType()
			view.Progress = head.Progress()
			view.JobState = string(head.State())
		}
		resp.Factories = append(resp.Factories, view)
	}
	return resp, nil
}
