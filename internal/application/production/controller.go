package production

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/production"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// ControllerOption configures a ContinuousProductionController
type ControllerOption func(*ContinuousProductionController)

func WithControllerPublisher(p events.Publisher) ControllerOption {
	return func(c *ContinuousProductionController) { c.publisher = events.OrNop(p) }
}

func WithControllerLogger(l zerolog.Logger) ControllerOption {
	return func(c *ContinuousProductionController) {
		c.logger = l.With().Str("component", "production_controller").Logger()
	}
}

func WithSpawner(s UnitSpawner) ControllerOption {
	return func(c *ContinuousProductionController) {
		if s != nil {
			c.spawner = s
		}
	}
}

// WithSimulationClock advances clock by every scaled delta the controller processes
func WithSimulationClock(clock *shared.SimulationClock) ControllerOption {
	return func(c *ContinuousProductionController) { c.clock = clock }
}

// ContinuousProductionController drives production once per frame: it scales
// the frame delta, runs the factory manager and turns completed jobs into units.
type ContinuousProductionController struct {
	manager   *FactoryManager
	validator *ledger.ProductionCostValidator
	spawner   UnitSpawner
	clock     *shared.SimulationClock
	publisher events.Publisher
	logger    zerolog.Logger

	paused          bool
	speedMultiplier float64
	stats           Statistics
}

// NewContinuousProductionController wires the controller to a manager and the
// validator that gates player queueing.
func NewContinuousProductionController(manager *FactoryManager, validator *ledger.ProductionCostValidator, opts ...ControllerOption) *ContinuousProductionController {
	c := &ContinuousProductionController{
		manager:         manager,
		validator:       validator,
		spawner:         NewSequentialSpawner(),
		publisher:       events.NopPublisher{},
		logger:          zerolog.Nop(),
		speedMultiplier: 1.0,
		stats:           newStatistics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ContinuousProductionController) Manager() *FactoryManager { return c.manager }
func (c *ContinuousProductionController) IsPaused() bool           { return c.paused }
func (c *ContinuousProductionController) SpeedMultiplier() float64 { return c.speedMultiplier }
func (c *ContinuousProductionController) Pause()                   { c.paused = true }
func (c *ContinuousProductionController) Resume()                  { c.paused = false }

// SetSpeedMultiplier sets time dilation; it must be positive
func (c *ContinuousProductionController) SetSpeedMultiplier(multiplier float64) error {
	if multiplier <= 0 {
		return shared.NewValidationError("speed_multiplier", "must be positive")
	}
	c.speedMultiplier = multiplier
	return nil
}

// ScaledDelta is the simulated time one frame of delta represents; zero while paused
func (c *ContinuousProductionController) ScaledDelta(delta float64) float64 {
	if c.paused || delta <= 0 {
		return 0
	}
	return delta * c.speedMultiplier
}

// Statistics returns a copy of the accumulated counters
func (c *ContinuousProductionController) Statistics() Statistics {
	return c.stats.clone()
}

// RestoreStatistics replaces the counters, used when loading a snapshot
func (c *ContinuousProductionController) RestoreStatistics(s Statistics) {
	c.stats = s.clone()
}

// Process runs one frame. Nothing happens while paused.
func (c *ContinuousProductionController) Process(delta float64) TickReport {
	scaled := c.ScaledDelta(delta)
	if scaled == 0 {
		return TickReport{}
	}
	if c.clock != nil {
		c.clock.Advance(scaled)
	}

	report := c.manager.Process(scaled)
	c.stats.Ticks++
	c.stats.SimulatedSeconds += scaled
	for _, consumed := range report.Consumption {
		c.stats.REEConsumed += consumed.REE
		c.stats.PowerConsumed += consumed.Power
	}
	c.stats.UnpaidCharges += len(report.Unpaid)
	for _, done := range report.Completed {
		if committed := c.complete(done); committed > 0 {
			c.stats.REEConsumed += committed
			report.charge(done.Job.FactionID(), committed, 0)
		}
	}
	return report
}

// complete settles a finished job and spawns its unit. It returns the REE a
// reservation commit deducted.
func (c *ContinuousProductionController) complete(done CompletedJob) float64 {
	job := done.Job
	log := c.logger.With().
		Int64("factory_id", int64(done.FactoryID)).
		Int64("job_id", int64(job.ID())).
		Str("unit_type", job.UnitType()).
		Int("faction_id", job.FactionID().Value()).
		Logger()

	base := events.Event{
		FactionID:     job.FactionID(),
		FactoryID:     int64(done.FactoryID),
		JobID:         int64(job.ID()),
		UnitType:      job.UnitType(),
		TransactionID: job.Reservation(),
		Position:      done.Position,
	}

	committed := 0.0
	if job.IsReserved() {
		ree, err := c.commit(job)
		if err != nil {
			c.stats.FailedCommits++
			log.Warn().Err(err).Msg("Reservation commit failed, unit not spawned")
			failed := base
			failed.Type = events.EventProductionFailed
			failed.Reason = err.Error()
			c.publisher.Publish(failed)
			return 0
		}
		committed = ree
	} else if c.validator != nil {
		c.validator.RecordDirectProduction(job.FactionID(), job.REECost())
	}

	unitID, err := c.spawner.Spawn(job.UnitType(), job.FactionID(), done.Position)
	if err != nil {
		c.stats.FailedSpawns++
		log.Warn().Err(err).Msg("Unit spawn failed")
		failed := base
		failed.Type = events.EventProductionFailed
		failed.Reason = err.Error()
		c.publisher.Publish(failed)
		return committed
	}

	c.stats.TotalProduced++
	c.stats.ProducedByType[job.UnitType()]++
	c.stats.ProducedByFaction[job.FactionID()]++
	log.Debug().Int64("unit_id", unitID).Msg("Unit produced")

	completed := base
	completed.Type = events.EventProductionCompleted
	completed.Value = float64(unitID)
	c.publisher.Publish(completed)
	return committed
}

// commit deducts a job's reservation and returns the amount charged
func (c *ContinuousProductionController) commit(job *production.ProductionJob) (float64, error) {
	if c.validator == nil {
		return 0, errors.New("no cost validator attached to commit reservation")
	}
	id, err := ledger.NewTransactionIDFromString(job.Reservation())
	if err != nil {
		return 0, err
	}
	tx, ok := c.validator.Pending(id)
	if err := c.validator.CommitProduction(id); err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return tx.REECost, nil
}

// QueueUnit is the player entry point: the cost is reserved with the validator
// first and the reservation travels with the job until it completes.
func (c *ContinuousProductionController) QueueUnit(factoryID production.FactoryID, unitType string) (*production.ProductionJob, error) {
	f, ok := c.manager.Factory(factoryID)
	if !ok {
		return nil, &ErrFactoryNotFound{FactoryID: factoryID}
	}
	if err := f.CheckQueueable(unitType); err != nil {
		return nil, err
	}
	if c.validator == nil {
		return c.manager.QueueUnit(factoryID, unitType)
	}

	txID, err := c.validator.BeginProduction(f.FactionID(), unitType)
	if err != nil {
		return nil, err
	}
	job, err := c.manager.QueueUnit(factoryID, unitType, production.WithReservation(txID.String()))
	if err != nil {
		c.validator.CancelProduction(txID)
		return nil, err
	}
	c.logger.Debug().
		Int64("factory_id", int64(factoryID)).
		Int64("job_id", int64(job.ID())).
		Str("unit_type", unitType).
		Str("transaction_id", txID.String()).
		Msg("Unit queued")
	return job, nil
}

// CancelJob cancels a job and releases its reservation
func (c *ContinuousProductionController) CancelJob(factoryID production.FactoryID, jobID production.JobID) error {
	_, err := c.manager.CancelJob(factoryID, jobID)
	return err
}

// SetOverclock sets a factory's overclock target
func (c *ContinuousProductionController) SetOverclock(factoryID production.FactoryID, target float64) error {
	return c.manager.SetOverclock(factoryID, target)
}

// ToMap exports controller settings and statistics
func (c *ContinuousProductionController) ToMap() map[string]any {
	return map[string]any{
		"paused":           c.paused,
		"speed_multiplier": c.speedMultiplier,
		"statistics":       c.stats.ToMap(),
	}
}

// RestoreFromMap loads settings and statistics exported by ToMap
func (c *ContinuousProductionController) RestoreFromMap(m map[string]any) error {
	r := shared.NewStateReader(m)
	paused := r.Bool("paused")
	speed := r.Float("speed_multiplier")
	statsMap := r.Map("statistics")
	if err := r.Err(); err != nil {
		return err
	}
	stats, err := StatisticsFromMap(statsMap)
	if err != nil {
		return err
	}
	if err := c.SetSpeedMultiplier(speed); err != nil {
		return err
	}
	c.paused = paused
	c.RestoreStatistics(stats)
	return nil
}
