package production

import (
	"fmt"
	"math"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// FactoryID identifies a factory across all factions
type FactoryID int64

// Upgrade tuning
const (
	MaxUpgradeLevel    = 3
	UpgradeSpeedBonus  = 0.15
	UpgradeHealthBonus = 0.20
	UpgradeQueueSlots  = 2
)

// resourceEpsilon absorbs float drift when remaining cost equals the balance
const resourceEpsilon = 1e-9

// FactoryConfig holds per-factory defaults
type FactoryConfig struct {
	BaseSpeed       float64
	MaxHealth       float64
	QueueCapacity   int
	MaxResourceWait float64
	Overclock       OverclockConfig
}

// DefaultFactoryConfig returns the standard factory tuning
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		BaseSpeed:       1.0,
		MaxHealth:       1000.0,
		QueueCapacity:   DefaultQueueCapacity,
		MaxResourceWait: DefaultMaxResourceWait,
		Overclock:       DefaultOverclockConfig(),
	}
}

// ProcessResult is the outcome of one Factory.Process call
type ProcessResult struct {
	Completed     []*ProductionJob
	REEConsumed   float64
	PowerConsumed float64
	Events        []events.Event
}

// Factory owns one production queue and one overclock.
// A destroyed factory never processes and its queue is empty.
type Factory struct {
	id           FactoryID
	factoryType  catalog.FactoryType
	factionID    shared.FactionID
	position     shared.Vector3
	districtID   string
	health       float64
	maxHealth    float64
	destroyed    bool
	upgradeLevel int
	baseSpeed    float64

	costs     *catalog.Catalog
	queue     *ProductionQueue
	overclock *ProductionOverclock
}

// NewFactory creates an operational factory at full health
func NewFactory(
	id FactoryID,
	factoryType catalog.FactoryType,
	factionID shared.FactionID,
	position shared.Vector3,
	districtID string,
	costs *catalog.Catalog,
	cfg FactoryConfig,
) (*Factory, error) {
	if !factoryType.IsValid() {
		return nil, shared.NewValidationError("factory_type", fmt.Sprintf("unknown factory type %q", factoryType))
	}
	if factionID.IsZero() {
		return nil, shared.NewValidationError("faction_id", "faction is required")
	}
	if costs == nil {
		return nil, shared.NewValidationError("catalog", "cost table is required")
	}
	if cfg.MaxHealth <= 0 {
		return nil, shared.NewValidationError("max_health", "must be positive")
	}
	if cfg.BaseSpeed <= 0 {
		cfg.BaseSpeed = 1.0
	}
	return &Factory{
		id:          id,
		factoryType: factoryType,
		factionID:   factionID,
		position:    position,
		districtID:  districtID,
		health:      cfg.MaxHealth,
		maxHealth:   cfg.MaxHealth,
		baseSpeed:   cfg.BaseSpeed,
		costs:       costs,
		queue:       NewProductionQueue(cfg.QueueCapacity, cfg.MaxResourceWait),
		overclock:   NewProductionOverclock(cfg.Overclock),
	}, nil
}

func (f *Factory) ID() FactoryID                   { return f.id }
func (f *Factory) Type() catalog.FactoryType       { return f.factoryType }
func (f *Factory) FactionID() shared.FactionID     { return f.factionID }
func (f *Factory) Position() shared.Vector3        { return f.position }
func (f *Factory) DistrictID() string              { return f.districtID }
func (f *Factory) Health() float64                 { return f.health }
func (f *Factory) MaxHealth() float64              { return f.maxHealth }
func (f *Factory) IsDestroyed() bool               { return f.destroyed }
func (f *Factory) UpgradeLevel() int               { return f.upgradeLevel }
func (f *Factory) BaseSpeed() float64              { return f.baseSpeed }
func (f *Factory) Queue() *ProductionQueue         { return f.queue }
func (f *Factory) Overclock() *ProductionOverclock { return f.overclock }
func (f *Factory) OverclockState() OverclockState  { return f.overclock.State() }
func (f *Factory) CurrentJob() *ProductionJob      { return f.queue.Head() }
func (f *Factory) QueuedJobs() []*ProductionJob    { return f.queue.Jobs() }
func (f *Factory) IsOperational() bool             { return !f.destroyed }
func (f *Factory) ProduceableUnits() []string      { return f.costs.ProducedBy(f.factoryType) }
func (f *Factory) HealthFraction() float64         { return f.health / f.maxHealth }
func (f *Factory) UpgradeSpeedMultiplier() float64 {
	return 1 + UpgradeSpeedBonus*float64(f.upgradeLevel)
}

// EffectiveSpeed combines base speed, overclock and upgrades. Zero during meltdown.
func (f *Factory) EffectiveSpeed() float64 {
	return f.baseSpeed * f.overclock.SpeedMultiplier() * f.UpgradeSpeedMultiplier()
}

// CanProduce reports whether this factory type builds the unit type
func (f *Factory) CanProduce(unitType string) bool {
	cost, ok := f.costs.Lookup(unitType)
	return ok && cost.ProducedBy() == f.factoryType
}

// QueueOption customizes a queued job
type QueueOption func(*queueOptions)

type queueOptions struct {
	reservation string
	reeCost     *float64
}

// WithReservation marks the job as prepaid through a validator transaction
func WithReservation(transactionID string) QueueOption {
	return func(o *queueOptions) {
		o.reservation = transactionID
	}
}

// WithREECost overrides the catalog REE price, used for faction-modified costs
func WithREECost(ree float64) QueueOption {
	return func(o *queueOptions) {
		o.reeCost = &ree
	}
}

// QueueUnit validates capability and appends a job to the queue
func (f *Factory) QueueUnit(unitType string, opts ...QueueOption) (*ProductionJob, error) {
	if err := f.CheckQueueable(unitType); err != nil {
		return nil, err
	}
	o := queueOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	cost, _ := f.costs.Lookup(unitType)
	if o.reeCost != nil {
		if *o.reeCost < 0 {
			return nil, shared.NewValidationError("ree_cost", "must not be negative")
		}
		cost = cost.WithREECost(*o.reeCost)
	}
	return f.queue.QueueUnit(f.factionID, cost, o.reservation)
}

// CheckQueueable runs every QueueUnit check without mutating the queue
func (f *Factory) CheckQueueable(unitType string) error {
	if f.destroyed {
		return &ErrFactoryDestroyed{FactoryID: f.id}
	}
	cost, ok := f.costs.Lookup(unitType)
	if !ok {
		return &ErrUnknownUnitType{UnitType: unitType}
	}
	if cost.ProducedBy() != f.factoryType {
		return &ErrUnitNotProduceable{UnitType: unitType, FactoryType: f.factoryType}
	}
	if f.queue.IsFull() {
		return &ErrQueueFull{Capacity: f.queue.Capacity()}
	}
	return nil
}

// CancelJob removes a job; the caller settles any reservation it carried
func (f *Factory) CancelJob(id JobID) (*ProductionJob, error) {
	job, err := f.queue.Cancel(id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// SetOverclockTarget forwards a speed target to the overclock
func (f *Factory) SetOverclockTarget(target float64) ([]events.Event, error) {
	if f.destroyed {
		return nil, &ErrFactoryDestroyed{FactoryID: f.id}
	}
	raised, err := f.overclock.SetTarget(target)
	if err != nil {
		return nil, err
	}
	return f.wrapOverclockEvents(raised), nil
}

// Process advances overclock and the head job for delta seconds.
// availableREE and availablePower are what the faction can still spend this tick.
func (f *Factory) Process(delta, availableREE, availablePower float64) ProcessResult {
	result := ProcessResult{}
	if f.destroyed || delta <= 0 {
		return result
	}

	result.Events = append(result.Events, f.wrapOverclockEvents(f.overclock.Update(delta))...)
	if f.overclock.State() == OverclockMeltdown {
		return result
	}

	head := f.queue.Head()
	if head == nil {
		return result
	}
	// Power is checked against the job's per-second draw, and the tick's
	// energy must also be payable when delta exceeds one second.
	powerDraw := head.PowerCost() * delta
	powerCovered := math.Max(head.PowerCost(), powerDraw) <= availablePower+resourceEpsilon
	reeCovered := head.IsReserved() || head.RemainingREE() <= availableREE+resourceEpsilon
	hasResources := reeCovered && powerCovered

	step := f.queue.Process(delta, f.EffectiveSpeed(), hasResources)

	if step.Started {
		result.Events = append(result.Events, f.jobEvent(events.EventProductionStarted, head, 0))
	}
	if step.Advanced {
		if !head.IsReserved() {
			result.REEConsumed = head.REECost() * (step.ProgressAfter - step.ProgressBefore)
		}
		result.PowerConsumed = powerDraw
		for _, mark := range crossedQuarters(step.ProgressBefore, step.ProgressAfter) {
			result.Events = append(result.Events, f.jobEvent(events.EventProductionProgress, head, mark))
		}
	}
	if step.Requeued {
		result.Events = append(result.Events, f.jobEvent(events.EventProductionRequeued, head, step.ProgressBefore))
	}
	if step.Completed != nil {
		result.Completed = append(result.Completed, step.Completed)
	}
	return result
}

// crossedQuarters lists the 25/50/75% marks passed between two progress values
func crossedQuarters(before, after float64) []float64 {
	var marks []float64
	for _, mark := range []float64{0.25, 0.5, 0.75} {
		if before < mark && after >= mark {
			marks = append(marks, mark)
		}
	}
	return marks
}

// TakeDamage reduces health. On reaching zero the factory is destroyed and its
// queue is cleared; the discarded jobs are returned with destroyed=true.
func (f *Factory) TakeDamage(amount float64) (discarded []*ProductionJob, destroyed bool) {
	if f.destroyed || amount <= 0 {
		return nil, false
	}
	f.health = math.Max(0, f.health-amount)
	if f.health > 0 {
		return nil, false
	}
	f.destroyed = true
	return f.queue.Clear(), true
}

// Repair restores health up to the maximum
func (f *Factory) Repair(amount float64) error {
	if f.destroyed {
		return &ErrFactoryDestroyed{FactoryID: f.id}
	}
	if amount <= 0 {
		return shared.NewValidationError("amount", "repair amount must be positive")
	}
	f.health = math.Min(f.maxHealth, f.health+amount)
	return nil
}

// Upgrade raises the level by one: +20% max health (current scaled), +2 queue slots, +15% speed
func (f *Factory) Upgrade() error {
	if f.destroyed {
		return &ErrFactoryDestroyed{FactoryID: f.id}
	}
	if f.upgradeLevel >= MaxUpgradeLevel {
		return &ErrMaxUpgradeLevel{FactoryID: f.id, Level: f.upgradeLevel}
	}
	if err := f.queue.SetCapacity(f.queue.Capacity() + UpgradeQueueSlots); err != nil {
		return err
	}
	f.upgradeLevel++
	f.maxHealth *= 1 + UpgradeHealthBonus
	f.health *= 1 + UpgradeHealthBonus
	return nil
}

// Event builds a factory-scoped event
func (f *Factory) Event(eventType events.EventType) events.Event {
	return events.Event{
		Type:      eventType,
		FactionID: f.factionID,
		FactoryID: int64(f.id),
		Position:  f.position,
	}
}

func (f *Factory) jobEvent(eventType events.EventType, job *ProductionJob, value float64) events.Event {
	e := f.Event(eventType)
	e.JobID = int64(job.ID())
	e.UnitType = job.UnitType()
	e.TransactionID = job.Reservation()
	e.Value = value
	return e
}

func (f *Factory) wrapOverclockEvents(raised []events.EventType) []events.Event {
	if len(raised) == 0 {
		return nil
	}
	out := make([]events.Event, 0, len(raised))
	for _, t := range raised {
		e := f.Event(t)
		e.Value = f.overclock.Heat()
		out = append(out, e)
	}
	return out
}

// String provides human-readable representation
func (f *Factory) String() string {
	return fmt.Sprintf("Factory[%d, %s, faction=%s, health=%.0f/%.0f, level=%d, queue=%d/%d, overclock=%s]",
		f.id, f.factoryType, f.factionID, f.health, f.maxHealth, f.upgradeLevel,
		f.queue.Len(), f.queue.Capacity(), f.overclock.State())
}

// ToMap exports the factory including its queue and overclock
func (f *Factory) ToMap() map[string]any {
	return map[string]any{
		"id":            int64(f.id),
		"factory_type":  string(f.factoryType),
		"faction_id":    f.factionID.Value(),
		"position":      f.position.ToMap(),
		"district_id":   f.districtID,
		"health":        f.health,
		"max_health":    f.maxHealth,
		"destroyed":     f.destroyed,
		"upgrade_level": f.upgradeLevel,
		"base_speed":    f.baseSpeed,
		"queue":         f.queue.ToMap(),
		"overclock":     f.overclock.ToMap(),
	}
}

// FactoryFromMap reconstructs a factory exported by ToMap against a cost table
func FactoryFromMap(m map[string]any, costs *catalog.Catalog) (*Factory, error) {
	if costs == nil {
		return nil, shared.NewValidationError("catalog", "cost table is required")
	}
	r := shared.NewStateReader(m)
	f := &Factory{
		id:           FactoryID(r.Int64("id")),
		districtID:   r.String("district_id"),
		health:       r.Float("health"),
		maxHealth:    r.Float("max_health"),
		destroyed:    r.Bool("destroyed"),
		upgradeLevel: r.Int("upgrade_level"),
		baseSpeed:    r.Float("base_speed"),
		costs:        costs,
	}
	typeName := r.String("factory_type")
	factionID := r.Int("faction_id")
	positionMap := r.Map("position")
	queueMap := r.Map("queue")
	overclockMap := r.Map("overclock")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("factory state: %w", err)
	}

	var err error
	if f.factoryType, err = catalog.ParseFactoryType(typeName); err != nil {
		return nil, err
	}
	if f.factionID, err = shared.NewFactionID(factionID); err != nil {
		return nil, err
	}
	if f.position, err = shared.Vector3FromMap(positionMap); err != nil {
		return nil, err
	}
	if f.queue, err = ProductionQueueFromMap(queueMap); err != nil {
		return nil, err
	}
	if f.overclock, err = ProductionOverclockFromMap(overclockMap); err != nil {
		return nil, err
	}
	if f.upgradeLevel < 0 || f.upgradeLevel > MaxUpgradeLevel {
		return nil, shared.NewValidationError("upgrade_level", "outside [0, 3]")
	}
	return f, nil
}
