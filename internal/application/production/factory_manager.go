package production

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// CompletedJob is a finished job together with where it was built
type CompletedJob struct {
	FactoryID production.FactoryID
	Position  shared.Vector3
	Job       *production.ProductionJob
}

// FactionConsumption is what one faction was charged in one tick
type FactionConsumption struct {
	FactionID shared.FactionID
	REE       float64
	Power     float64
}

// TickReport summarizes one FactoryManager.Process call. Unpaid lists draws
// the ledger refused; that progress was made without being charged.
type TickReport struct {
	Completed   []CompletedJob
	Consumption []FactionConsumption
	Unpaid      []FactionConsumption
}

// charge adds REE and power to a faction's consumption entry
func (r *TickReport) charge(factionID shared.FactionID, ree, power float64) {
	for i := range r.Consumption {
		if r.Consumption[i].FactionID == factionID {
			r.Consumption[i].REE += ree
			r.Consumption[i].Power += power
			return
		}
	}
	r.Consumption = append(r.Consumption, FactionConsumption{FactionID: factionID, REE: ree, Power: power})
}

// TotalREE sums REE charged across factions
func (r TickReport) TotalREE() float64 {
	total := 0.0
	for _, c := range r.Consumption {
		total += c.REE
	}
	return total
}

// ManagerOption configures a FactoryManager
type ManagerOption func(*FactoryManager)

// WithManagerPublisher routes factory events to p
func WithManagerPublisher(p events.Publisher) ManagerOption {
	return func(m *FactoryManager) { m.publisher = events.OrNop(p) }
}

// WithManagerLogger sets the component logger
func WithManagerLogger(l zerolog.Logger) ManagerOption {
	return func(m *FactoryManager) {
		m.logger = l.With().Str("component", "factory_manager").Logger()
	}
}

// WithValidator lets the manager keep reserved REE out of per-tick draws and
// release reservations of jobs that are cancelled or lost to destruction.
func WithValidator(v *ledger.ProductionCostValidator) ManagerOption {
	return func(m *FactoryManager) { m.validator = v }
}

// FactoryManager is the registry of every live factory. Iteration follows
// registration order so a run replays identically.
type FactoryManager struct {
	costs     *catalog.Catalog
	cfg       production.FactoryConfig
	resources ledger.ResourceLedger
	validator *ledger.ProductionCostValidator
	publisher events.Publisher
	logger    zerolog.Logger

	factories     map[production.FactoryID]*production.Factory
	order         []production.FactoryID
	byFaction     map[shared.FactionID][]production.FactoryID
	eliminated    map[shared.FactionID]bool
	nextFactoryID production.FactoryID
}

// NewFactoryManager creates an empty registry. A nil ledger runs in sandbox mode.
func NewFactoryManager(costs *catalog.Catalog, cfg production.FactoryConfig, resources ledger.ResourceLedger, opts ...ManagerOption) *FactoryManager {
	m := &FactoryManager{
		costs:         costs,
		cfg:           cfg,
		resources:     ledger.OrUnlimited(resources),
		publisher:     events.NopPublisher{},
		logger:        zerolog.Nop(),
		factories:     make(map[production.FactoryID]*production.Factory),
		byFaction:     make(map[shared.FactionID][]production.FactoryID),
		eliminated:    make(map[shared.FactionID]bool),
		nextFactoryID: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *FactoryManager) Catalog() *catalog.Catalog               { return m.costs }
func (m *FactoryManager) FactoryConfig() production.FactoryConfig { return m.cfg }
func (m *FactoryManager) Len() int                                { return len(m.order) }

// CreateFactory builds and registers a new factory
func (m *FactoryManager) CreateFactory(factoryType catalog.FactoryType, factionID shared.FactionID, position shared.Vector3, districtID string) (*production.Factory, error) {
	f, err := production.NewFactory(m.nextFactoryID, factoryType, factionID, position, districtID, m.costs, m.cfg)
	if err != nil {
		return nil, err
	}
	if err := m.RegisterFactory(f); err != nil {
		return nil, err
	}
	return f, nil
}

// RegisterFactory adds an existing factory to the registry
func (m *FactoryManager) RegisterFactory(f *production.Factory) error {
	if _, exists := m.factories[f.ID()]; exists {
		return &ErrDuplicateFactory{FactoryID: f.ID()}
	}
	if f.IsDestroyed() {
		return &production.ErrFactoryDestroyed{FactoryID: f.ID()}
	}
	m.factories[f.ID()] = f
	m.order = append(m.order, f.ID())
	m.byFaction[f.FactionID()] = append(m.byFaction[f.FactionID()], f.ID())
	delete(m.eliminated, f.FactionID())
	if f.ID() >= m.nextFactoryID {
		m.nextFactoryID = f.ID() + 1
	}

	m.logger.Info().
		Int64("factory_id", int64(f.ID())).
		Str("factory_type", string(f.Type())).
		Int("faction_id", f.FactionID().Value()).
		Msg("Factory registered")
	m.publisher.Publish(f.Event(events.EventFactoryCreated))
	return nil
}

// Factory looks up a live factory
func (m *FactoryManager) Factory(id production.FactoryID) (*production.Factory, bool) {
	f, ok := m.factories[id]
	return f, ok
}

// Factories returns live factories in registration order
func (m *FactoryManager) Factories() []*production.Factory {
	out := make([]*production.Factory, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.factories[id])
	}
	return out
}

// FactionFactories returns a faction's live factories in registration order
func (m *FactoryManager) FactionFactories(factionID shared.FactionID) []*production.Factory {
	ids := m.byFaction[factionID]
	out := make([]*production.Factory, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.factories[id])
	}
	return out
}

// IsEliminated reports whether the faction lost its last factory
func (m *FactoryManager) IsEliminated(factionID shared.FactionID) bool {
	return m.eliminated[factionID]
}

// EliminatedFactions lists factions that lost their last factory, by id
func (m *FactoryManager) EliminatedFactions() []shared.FactionID {
	out := make([]shared.FactionID, 0, len(m.eliminated))
	for id, eliminated := range m.eliminated {
		if eliminated {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value() < out[j].Value() })
	return out
}

func (m *FactoryManager) lookup(id production.FactoryID) (*production.Factory, error) {
	f, ok := m.factories[id]
	if !ok {
		return nil, &ErrFactoryNotFound{FactoryID: id}
	}
	return f, nil
}

// QueueUnit queues a job on a factory. Without a reservation option the job
// pays its REE progressively as it advances. With a validator attached the job
// is priced at the faction's effective cost, so both paths charge the same.
func (m *FactoryManager) QueueUnit(id production.FactoryID, unitType string, opts ...production.QueueOption) (*production.ProductionJob, error) {
	f, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if m.validator != nil {
		if ree, err := m.validator.EffectiveCost(f.FactionID(), unitType); err == nil {
			opts = append([]production.QueueOption{production.WithREECost(ree)}, opts...)
		}
	}
	return f.QueueUnit(unitType, opts...)
}

// CancelJob removes a job and releases its reservation, if any
func (m *FactoryManager) CancelJob(id production.FactoryID, jobID production.JobID) (*production.ProductionJob, error) {
	f, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	job, err := f.CancelJob(jobID)
	if err != nil {
		return nil, err
	}
	m.releaseReservations([]*production.ProductionJob{job})

	e := f.Event(events.EventProductionCancelled)
	e.JobID = int64(job.ID())
	e.UnitType = job.UnitType()
	e.TransactionID = job.Reservation()
	m.publisher.Publish(e)
	return job, nil
}

// SetOverclock applies an overclock target to a factory
func (m *FactoryManager) SetOverclock(id production.FactoryID, target float64) error {
	f, err := m.lookup(id)
	if err != nil {
		return err
	}
	raised, err := f.SetOverclockTarget(target)
	if err != nil {
		return err
	}
	for _, e := range raised {
		m.publisher.Publish(e)
	}
	return nil
}

// UpgradeFactory raises a factory's upgrade level
func (m *FactoryManager) UpgradeFactory(id production.FactoryID) error {
	f, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := f.Upgrade(); err != nil {
		return err
	}
	e := f.Event(events.EventFactoryUpgraded)
	e.Value = float64(f.UpgradeLevel())
	m.publisher.Publish(e)
	m.logger.Info().Int64("factory_id", int64(id)).Int("level", f.UpgradeLevel()).Msg("Factory upgraded")
	return nil
}

// RepairFactory restores health on a live factory
func (m *FactoryManager) RepairFactory(id production.FactoryID, amount float64) error {
	f, err := m.lookup(id)
	if err != nil {
		return err
	}
	return f.Repair(amount)
}

// DamageFactory applies damage; a factory reaching zero health is removed,
// its jobs are discarded and their reservations released without deduction.
func (m *FactoryManager) DamageFactory(id production.FactoryID, amount float64) (bool, error) {
	f, err := m.lookup(id)
	if err != nil {
		return false, err
	}
	discarded, destroyed := f.TakeDamage(amount)
	if !destroyed {
		return false, nil
	}
	m.releaseReservations(discarded)
	m.remove(f)

	m.logger.Info().
		Int64("factory_id", int64(id)).
		Int("faction_id", f.FactionID().Value()).
		Int("jobs_lost", len(discarded)).
		Msg("Factory destroyed")
	m.publisher.Publish(f.Event(events.EventFactoryDestroyed))

	if len(m.byFaction[f.FactionID()]) == 0 && !m.eliminated[f.FactionID()] {
		m.eliminated[f.FactionID()] = true
		delete(m.byFaction, f.FactionID())
		m.logger.Info().Int("faction_id", f.FactionID().Value()).Msg("Faction eliminated")
		m.publisher.Publish(events.Event{Type: events.EventFactionEliminated, FactionID: f.FactionID()})
	}
	return true, nil
}

// DestroyFactory removes a factory outright
func (m *FactoryManager) DestroyFactory(id production.FactoryID) error {
	_, err := m.DamageFactory(id, math.Inf(1))
	return err
}

func (m *FactoryManager) remove(f *production.Factory) {
	delete(m.factories, f.ID())
	m.order = removeID(m.order, f.ID())
	m.byFaction[f.FactionID()] = removeID(m.byFaction[f.FactionID()], f.ID())
}

func (m *FactoryManager) releaseReservations(jobs []*production.ProductionJob) {
	if m.validator == nil {
		return
	}
	for _, job := range jobs {
		if !job.IsReserved() {
			continue
		}
		id, err := ledger.NewTransactionIDFromString(job.Reservation())
		if err != nil {
			m.logger.Warn().Err(err).Int64("job_id", int64(job.ID())).Msg("Job carries malformed reservation")
			continue
		}
		m.validator.CancelProduction(id)
	}
}

// availableFor returns what a faction may spend this tick, with reservations held back
func (m *FactoryManager) availableFor(factionID shared.FactionID) ledger.Resources {
	available := m.resources.Available(factionID)
	if m.validator != nil {
		available.REE -= m.validator.ReservedREE(factionID)
	}
	return available
}

// Process advances every live factory by delta seconds. Each faction's balance
// is read once, earlier factories' draws are subtracted for later ones, and the
// faction is charged with a single Consume call.
func (m *FactoryManager) Process(delta float64) TickReport {
	report := TickReport{}
	if delta <= 0 {
		return report
	}

	budgets := make(map[shared.FactionID]*ledger.Resources)
	drawn := make(map[shared.FactionID]*FactionConsumption)
	var factionOrder []shared.FactionID

	for _, f := range m.Factories() {
		faction := f.FactionID()
		budget, ok := budgets[faction]
		if !ok {
			available := m.availableFor(faction)
			budget = &available
			budgets[faction] = budget
			drawn[faction] = &FactionConsumption{FactionID: faction}
			factionOrder = append(factionOrder, faction)
		}
		used := drawn[faction]

		result := f.Process(delta, budget.REE-used.REE, budget.Power-used.Power)
		used.REE += result.REEConsumed
		used.Power += result.PowerConsumed

		for _, e := range result.Events {
			m.publisher.Publish(e)
		}
		for _, job := range result.Completed {
			report.Completed = append(report.Completed, CompletedJob{FactoryID: f.ID(), Position: f.Position(), Job: job})
		}
	}

	for _, faction := range factionOrder {
		used := drawn[faction]
		if used.REE == 0 && used.Power == 0 {
			continue
		}
		if err := m.resources.Consume(faction, used.REE, used.Power); err != nil {
			m.logger.Warn().Err(err).
				Int("faction_id", faction.Value()).
				Float64("ree", used.REE).
				Float64("power", used.Power).
				Msg("Resource deduction failed")
			report.Unpaid = append(report.Unpaid, *used)
			m.publisher.Publish(events.Event{
				Type:      events.EventProductionFailed,
				FactionID: faction,
				Requested: used.REE,
				Value:     used.Power,
				Reason:    "resource deduction failed: " + err.Error(),
			})
			continue
		}
		report.Consumption = append(report.Consumption, *used)
	}
	return report
}

// ToMap exports every live factory in registration order
func (m *FactoryManager) ToMap() map[string]any {
	factories := make([]map[string]any, 0, len(m.order))
	for _, f := range m.Factories() {
		factories = append(factories, f.ToMap())
	}
	eliminated := make([]int, 0, len(m.eliminated))
	for faction := range m.eliminated {
		eliminated = append(eliminated, faction.Value())
	}
	sort.Ints(eliminated)
	return map[string]any{
		"next_factory_id":     int64(m.nextFactoryID),
		"factories":           factories,
		"eliminated_factions": eliminated,
	}
}

// RestoreFromMap loads factories exported by ToMap into an empty manager
// without publishing creation events.
func (m *FactoryManager) RestoreFromMap(state map[string]any) error {
	if len(m.order) > 0 {
		return shared.NewDomainError("restore requires an empty factory manager")
	}
	r := shared.NewStateReader(state)
	next := production.FactoryID(r.Int64("next_factory_id"))
	factoryMaps := r.Maps("factories")
	eliminated := r.Ints("eliminated_factions")
	if err := r.Err(); err != nil {
		return fmt.Errorf("factory manager state: %w", err)
	}

	silent := m.publisher
	m.publisher = events.NopPublisher{}
	defer func() { m.publisher = silent }()

	for _, fm := range factoryMaps {
		f, err := production.FactoryFromMap(fm, m.costs)
		if err != nil {
			return err
		}
		if err := m.RegisterFactory(f); err != nil {
			return err
		}
	}
	for _, id := range eliminated {
		faction, err := shared.NewFactionID(id)
		if err != nil {
			return err
		}
		m.eliminated[faction] = true
	}
	if next > m.nextFactoryID {
		m.nextFactoryID = next
	}
	return nil
}

func removeID(ids []production.FactoryID, id production.FactoryID) []production.FactoryID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
