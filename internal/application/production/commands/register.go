package commands

import (
	"github.com/andrescamacho/rts-production/internal/application/mediator"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
)

// RegisterHandlers binds every production command to world
func RegisterHandlers(m mediator.Mediator, world *appProduction.World) error {
	registrations := []func() error{
		func() error { return mediator.RegisterHandler[*QueueUnitCommand](m, NewQueueUnitHandler(world)) },
		func() error { return mediator.RegisterHandler[*CancelJobCommand](m, NewCancelJobHandler(world)) },
		func() error { return mediator.RegisterHandler[*SetOverclockCommand](m, NewSetOverclockHandler(world)) },
		func() error {
			return mediator.RegisterHandler[*UpgradeFactoryCommand](m, NewUpgradeFactoryHandler(world))
		},
		func() error {
			return mediator.RegisterHandler[*DamageFactoryCommand](m, NewDamageFactoryHandler(world))
		},
		func() error {
			return mediator.RegisterHandler[*StartConstructionCommand](m, NewStartConstructionHandler(world))
		},
		func() error {
			return mediator.RegisterHandler[*AssignBuilderCommand](m, NewAssignBuilderHandler(world))
		},
		func() error {
			return mediator.RegisterHandler[*CancelConstructionCommand](m, NewCancelConstructionHandler(world))
		},
		func() error { return mediator.RegisterHandler[*PlaceFactoryCommand](m, NewPlaceFactoryHandler(world)) },
		func() error { return mediator.RegisterHandler[*AdvanceCommand](m, NewAdvanceHandler(world)) },
		func() error { return mediator.RegisterHandler[*SetSpeedCommand](m, NewSetSpeedHandler(world)) },
		func() error { return mediator.RegisterHandler[*DepositCommand](m, NewDepositHandler(world)) },
		func() error {
			return mediator.RegisterHandler[*SetFactionModifierCommand](m, NewSetFactionModifierHandler(world))
		},
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
