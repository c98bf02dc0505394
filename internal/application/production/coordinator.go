package production

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// ConstructionCoordinator links construction sites to the factory registry:
// finished sites become factories and destroyed factories free their slots.
type ConstructionCoordinator struct {
	construction *construction.FactoryConstruction
	manager      *FactoryManager
	logger       zerolog.Logger
}

func NewConstructionCoordinator(c *construction.FactoryConstruction, m *FactoryManager, logger zerolog.Logger) *ConstructionCoordinator {
	return &ConstructionCoordinator{
		construction: c,
		manager:      m,
		logger:       logger.With().Str("component", "construction_coordinator").Logger(),
	}
}

// Update advances construction and registers a factory for each finished site.
// A site whose factory cannot be created is abandoned so it frees its slot;
// the remaining sites are still finalized and every failure is returned.
func (cc *ConstructionCoordinator) Update(delta float64) ([]*production.Factory, error) {
	var built []*production.Factory
	var errs []error
	for _, site := range cc.construction.Update(delta) {
		f, err := cc.manager.CreateFactory(site.FactoryType(), site.FactionID(), site.Position(), site.DistrictID())
		if err != nil {
			errs = append(errs, fmt.Errorf("site %d: %w", site.ID(), err))
			if abandonErr := cc.construction.AbandonSite(site.ID(), err.Error()); abandonErr != nil {
				errs = append(errs, abandonErr)
			}
			continue
		}
		if err := cc.construction.FinalizeConstruction(site.ID(), int64(f.ID())); err != nil {
			errs = append(errs, fmt.Errorf("site %d: %w", site.ID(), err))
			continue
		}
		cc.logger.Info().
			Int64("site_id", int64(site.ID())).
			Int64("factory_id", int64(f.ID())).
			Msg("Construction site became a factory")
		built = append(built, f)
	}
	return built, errors.Join(errs...)
}

// PlaceFactory creates a factory immediately, subject to the placement rules
func (cc *ConstructionCoordinator) PlaceFactory(factoryType catalog.FactoryType, factionID shared.FactionID, position shared.Vector3, districtID string) (*production.Factory, error) {
	if ok, reason := cc.construction.IsValidPlacement(position, factionID, districtID); !ok {
		return nil, &construction.ErrInvalidPlacement{Reason: reason}
	}
	f, err := cc.manager.CreateFactory(factoryType, factionID, position, districtID)
	if err != nil {
		return nil, err
	}
	cc.construction.RegisterExistingFactory(int64(f.ID()), position, factionID)
	return f, nil
}

// HandleEvent releases construction slots held by destroyed factories
func (cc *ConstructionCoordinator) HandleEvent(e events.Event) {
	if e.Type != events.EventFactoryDestroyed {
		return
	}
	if cc.construction.UnregisterFactory(e.FactoryID) {
		cc.logger.Debug().Int64("factory_id", e.FactoryID).Msg("Factory slot released")
	}
}
