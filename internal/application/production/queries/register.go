package queries

import (
	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
)

// RegisterHandlers binds every production query to world
func RegisterHandlers(m mediator.Mediator, world *appProduction.World) error {
	if err := mediator.RegisterHandler[*ListFactoriesQuery](m, NewListFactoriesHandler(world)); err != nil {
		return err
	}
	if err := mediator.RegisterHandler[*GetFactionEconomyQuery](m, NewGetFactionEconomyHandler(world)); err != nil {
		return err
	}
	return mediator.RegisterHandler[*GetStatisticsQuery](m, NewGetStatisticsHandler(world))
}
