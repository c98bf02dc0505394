package production

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// SnapshotVersion is written into every world snapshot
const SnapshotVersion = 1

// WorldConfig tunes every component of a World
type WorldConfig struct {
	Factory            production.FactoryConfig
	Construction       construction.Config
	FailureHistorySize int
	BalanceCap         float64
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Factory:            production.DefaultFactoryConfig(),
		Construction:       construction.DefaultConfig(),
		FailureHistorySize: ledger.DefaultFailureHistorySize,
		BalanceCap:         ledger.DefaultBalanceCap,
	}
}

type worldDeps struct {
	logger  zerolog.Logger
	spawner UnitSpawner
	oracle  construction.DistrictOracle
	sandbox bool
}

// WorldOption configures collaborators supplied from outside the core
type WorldOption func(*worldDeps)

func WithWorldLogger(l zerolog.Logger) WorldOption {
	return func(d *worldDeps) { d.logger = l }
}

func WithWorldSpawner(s UnitSpawner) WorldOption {
	return func(d *worldDeps) { d.spawner = s }
}

func WithDistricts(oracle construction.DistrictOracle) WorldOption {
	return func(d *worldDeps) { d.oracle = oracle }
}

// WithSandbox replaces the in-memory ledger with an unlimited one
func WithSandbox() WorldOption {
	return func(d *worldDeps) { d.sandbox = true }
}

// World is the composition root of the production core. Every component shares
// one event bus and one simulation clock.
type World struct {
	Bus          *events.Bus
	Clock        *shared.SimulationClock
	Catalog      *catalog.Catalog
	Ledger       ledger.ResourceLedger
	Validator    *ledger.ProductionCostValidator
	Manager      *FactoryManager
	Construction *construction.FactoryConstruction
	Coordinator  *ConstructionCoordinator
	Controller   *ContinuousProductionController

	cfg    WorldConfig
	logger zerolog.Logger
}

func resolveDeps(opts []WorldOption) worldDeps {
	d := worldDeps{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewWorld builds an empty world over the given cost catalog
func NewWorld(costs *catalog.Catalog, cfg WorldConfig, opts ...WorldOption) (*World, error) {
	if costs == nil {
		return nil, shared.NewValidationError("catalog", "cost table is required")
	}
	d := resolveDeps(opts)
	w := &World{
		Bus:     events.NewBus(),
		Clock:   shared.NewSimulationClock(),
		Catalog: costs,
		cfg:     cfg,
		logger:  d.logger,
	}
	if d.sandbox {
		w.Ledger = ledger.NewUnlimitedLedger()
	} else {
		w.Ledger = ledger.NewInMemoryLedger(cfg.BalanceCap)
	}
	w.Validator = ledger.NewProductionCostValidator(costs, w.Ledger, w.validatorOptions()...)
	w.Construction = construction.NewFactoryConstruction(cfg.Construction, d.oracle, w.constructionOptions()...)
	w.wire(d)
	return w, nil
}

func (w *World) validatorOptions() []ledger.ValidatorOption {
	return []ledger.ValidatorOption{
		ledger.WithPublisher(w.Bus),
		ledger.WithClock(w.Clock),
		ledger.WithLogger(w.logger),
		ledger.WithFailureHistorySize(w.cfg.FailureHistorySize),
	}
}

func (w *World) constructionOptions() []construction.Option {
	return []construction.Option{
		construction.WithPublisher(w.Bus),
		construction.WithClock(w.Clock),
		construction.WithLogger(w.logger),
	}
}

func (w *World) wire(d worldDeps) {
	w.Manager = NewFactoryManager(w.Catalog, w.cfg.Factory, w.Ledger,
		WithValidator(w.Validator),
		WithManagerPublisher(w.Bus),
		WithManagerLogger(w.logger),
	)
	w.Coordinator = NewConstructionCoordinator(w.Construction, w.Manager, w.logger)
	w.Controller = NewContinuousProductionController(w.Manager, w.Validator,
		WithSpawner(d.spawner),
		WithSimulationClock(w.Clock),
		WithControllerPublisher(w.Bus),
		WithControllerLogger(w.logger),
	)
	w.Bus.Subscribe(events.EventFactoryDestroyed, w.Coordinator.HandleEvent)
}

func (w *World) Config() WorldConfig { return w.cfg }

// Deposit credits a faction when the world runs on the in-memory ledger
func (w *World) Deposit(factionID shared.FactionID, ree, power float64) error {
	l, ok := w.Ledger.(*ledger.InMemoryLedger)
	if !ok {
		return shared.NewDomainError("deposits require the in-memory ledger")
	}
	return l.Deposit(factionID, ree, power)
}

// TickResult is what one World.Tick produced
type TickResult struct {
	Production TickReport
	Built      []*production.Factory
}

// Tick advances production and construction by one frame of delta seconds.
// Construction follows the controller's pause and time dilation.
func (w *World) Tick(delta float64) (TickResult, error) {
	scaled := w.Controller.ScaledDelta(delta)
	result := TickResult{Production: w.Controller.Process(delta)}
	if scaled == 0 {
		return result, nil
	}
	built, err := w.Coordinator.Update(scaled)
	result.Built = built
	if err != nil {
		w.logger.Error().Err(err).Msg("Construction handoff failed")
		return result, err
	}
	return result, nil
}

// Snapshot exports the complete world state as primitive maps
func (w *World) Snapshot() map[string]any {
	snapshot := map[string]any{
		"version":      SnapshotVersion,
		"elapsed":      w.Clock.Elapsed(),
		"validator":    w.Validator.ToMap(),
		"manager":      w.Manager.ToMap(),
		"construction": w.Construction.ToMap(),
		"controller":   w.Controller.ToMap(),
	}
	if l, ok := w.Ledger.(*ledger.InMemoryLedger); ok {
		snapshot["ledger"] = l.ToMap()
	}
	return snapshot
}

// RestoreWorld rebuilds a world from a Snapshot. Collaborators outside the
// core (spawner, district oracle) are supplied again through opts.
func RestoreWorld(snapshot map[string]any, costs *catalog.Catalog, cfg WorldConfig, opts ...WorldOption) (*World, error) {
	if costs == nil {
		return nil, shared.NewValidationError("catalog", "cost table is required")
	}
	d := resolveDeps(opts)
	r := shared.NewStateReader(snapshot)
	version := r.Int("version")
	elapsed := r.Float("elapsed")
	validatorState := r.Map("validator")
	managerState := r.Map("manager")
	constructionState := r.Map("construction")
	controllerState := r.Map("controller")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("world snapshot: %w", err)
	}
	if version != SnapshotVersion {
		return nil, shared.NewDomainError(fmt.Sprintf("unsupported snapshot version %d", version))
	}

	w := &World{
		Bus:     events.NewBus(),
		Clock:   shared.NewSimulationClock(),
		Catalog: costs,
		cfg:     cfg,
		logger:  d.logger,
	}
	w.Clock.SetElapsed(elapsed)

	switch {
	case r.Has("ledger"):
		l, err := ledger.InMemoryLedgerFromMap(r.Map("ledger"))
		if err != nil {
			return nil, err
		}
		w.Ledger = l
	case d.sandbox:
		w.Ledger = ledger.NewUnlimitedLedger()
	default:
		w.Ledger = ledger.NewUnlimitedLedger()
		w.logger.Warn().Msg("Snapshot carries no ledger, restoring in sandbox mode")
	}

	var err error
	if w.Validator, err = ledger.ProductionCostValidatorFromMap(validatorState, costs, w.Ledger, w.validatorOptions()...); err != nil {
		return nil, err
	}
	if w.Construction, err = construction.FactoryConstructionFromMap(constructionState, d.oracle, w.constructionOptions()...); err != nil {
		return nil, err
	}
	w.wire(d)
	if err := w.Manager.RestoreFromMap(managerState); err != nil {
		return nil, err
	}
	if err := w.Controller.RestoreFromMap(controllerState); err != nil {
		return nil, err
	}
	return w, nil
}
