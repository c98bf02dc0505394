package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// ProductionMetricsCollector turns production events into Prometheus series.
// Counters are fed from the event bus; gauges are refreshed by ObserveWorld,
// which must run on the goroutine that ticks the world.
type ProductionMetricsCollector struct {
	// Unit production counters
	unitsStarted    *prometheus.CounterVec
	unitsCompleted  *prometheus.CounterVec
	unitsDenied     *prometheus.CounterVec
	unitsFailed     *prometheus.CounterVec
	unitsRequeued   *prometheus.CounterVec
	unitsCancelled  *prometheus.CounterVec
	deniedREE       *prometheus.CounterVec
	meltdownsTotal  *prometheus.CounterVec
	heatWarnings    *prometheus.CounterVec
	factoriesBuilt  *prometheus.CounterVec
	factoriesLost   *prometheus.CounterVec
	sitesCancelled  *prometheus.CounterVec
	eliminatedTotal prometheus.Counter

	// World state gauges
	factoriesActive *prometheus.GaugeVec
	queueDepth      *prometheus.GaugeVec
	spendableREE    *prometheus.GaugeVec
	reservedREE     *prometheus.GaugeVec
	factoryHeat     *prometheus.GaugeVec
	simulatedTime   prometheus.Gauge
	speedMultiplier prometheus.Gauge
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help},
		labels,
	)
}

func gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help},
		labels,
	)
}

// NewProductionMetricsCollector creates a collector with every series unregistered
func NewProductionMetricsCollector() *ProductionMetricsCollector {
	return &ProductionMetricsCollector{
		unitsStarted:   counterVec("units_started_total", "Jobs that began building", "faction_id", "unit_type"),
		unitsCompleted: counterVec("units_completed_total", "Units that finished production", "faction_id", "unit_type"),
		unitsDenied:    counterVec("units_denied_total", "Production requests refused by the cost validator", "faction_id", "unit_type"),
		unitsFailed:    counterVec("units_failed_total", "Finished jobs whose commit or spawn failed", "faction_id", "unit_type"),
		unitsRequeued:  counterVec("units_requeued_total", "Head jobs moved to the back after waiting too long", "faction_id"),
		unitsCancelled: counterVec("units_cancelled_total", "Jobs cancelled before completion", "faction_id"),
		deniedREE:      counterVec("denied_ree_total", "REE requested by denied production", "faction_id"),
		meltdownsTotal: counterVec("meltdowns_total", "Overclock meltdowns", "faction_id"),
		heatWarnings:   counterVec("heat_warnings_total", "Overclock heat warnings", "faction_id"),
		factoriesBuilt: counterVec("factories_created_total", "Factories brought online", "faction_id"),
		factoriesLost:  counterVec("factories_destroyed_total", "Factories destroyed", "faction_id"),
		sitesCancelled: counterVec("construction_cancelled_total", "Construction sites cancelled", "faction_id"),
		eliminatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "factions_eliminated_total",
			Help:      "Factions that lost their last factory",
		}),

		factoriesActive: gaugeVec("factories_active", "Factories currently online", "faction_id"),
		queueDepth:      gaugeVec("queue_depth", "Jobs queued across a faction's factories", "faction_id"),
		spendableREE:    gaugeVec("spendable_ree", "REE balance minus open reservations", "faction_id"),
		reservedREE:     gaugeVec("reserved_ree", "REE held by open reservations", "faction_id"),
		factoryHeat:     gaugeVec("factory_heat", "Overclock heat per factory", "factory_id", "faction_id"),
		simulatedTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "simulated_seconds",
			Help:      "Simulation clock reading",
		}),
		speedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "speed_multiplier",
			Help:      "Global production speed multiplier, zero while paused",
		}),
	}
}

// Register registers all production metrics with the Prometheus registry
func (c *ProductionMetricsCollector) Register() error {
	return register(
		c.unitsStarted, c.unitsCompleted, c.unitsDenied, c.unitsFailed,
		c.unitsRequeued, c.unitsCancelled, c.deniedREE, c.meltdownsTotal,
		c.heatWarnings, c.factoriesBuilt, c.factoriesLost, c.sitesCancelled,
		c.eliminatedTotal, c.factoriesActive, c.queueDepth, c.spendableREE,
		c.reservedREE, c.factoryHeat, c.simulatedTime, c.speedMultiplier,
	)
}

// Subscribe feeds every event published on the bus into the collector
func (c *ProductionMetricsCollector) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(c.RecordEvent)
}

// RecordEvent updates the counters affected by one event
func (c *ProductionMetricsCollector) RecordEvent(e events.Event) {
	faction := factionLabel(e.FactionID)
	switch e.Type {
	case events.EventProductionStarted:
		c.unitsStarted.WithLabelValues(faction, e.UnitType).Inc()
	case events.EventProductionCompleted:
		c.unitsCompleted.WithLabelValues(faction, e.UnitType).Inc()
	case events.EventProductionDenied:
		c.unitsDenied.WithLabelValues(faction, e.UnitType).Inc()
		if e.Requested > 0 {
			c.deniedREE.WithLabelValues(faction).Add(e.Requested)
		}
	case events.EventProductionFailed:
		c.unitsFailed.WithLabelValues(faction, e.UnitType).Inc()
	case events.EventProductionRequeued:
		c.unitsRequeued.WithLabelValues(faction).Inc()
	case events.EventProductionCancelled:
		c.unitsCancelled.WithLabelValues(faction).Inc()
	case events.EventMeltdownStarted:
		c.meltdownsTotal.WithLabelValues(faction).Inc()
	case events.EventHeatWarning:
		c.heatWarnings.WithLabelValues(faction).Inc()
	case events.EventFactoryCreated:
		c.factoriesBuilt.WithLabelValues(faction).Inc()
	case events.EventFactoryDestroyed:
		c.factoriesLost.WithLabelValues(faction).Inc()
	case events.EventConstructionCancelled:
		c.sitesCancelled.WithLabelValues(faction).Inc()
	case events.EventFactionEliminated:
		c.eliminatedTotal.Inc()
	}
}

// ObserveWorld refreshes the state gauges from a world between ticks
func (c *ProductionMetricsCollector) ObserveWorld(w *appProduction.World) {
	c.factoriesActive.Reset()
	c.queueDepth.Reset()
	c.factoryHeat.Reset()
	c.spendableREE.Reset()
	c.reservedREE.Reset()

	factions := make(map[shared.FactionID]struct{})
	for _, f := range w.Manager.Factories() {
		faction := factionLabel(f.FactionID())
		factions[f.FactionID()] = struct{}{}
		c.factoriesActive.WithLabelValues(faction).Inc()
		c.queueDepth.WithLabelValues(faction).Add(float64(f.Queue().Len()))
		c.factoryHeat.WithLabelValues(strconv.FormatInt(int64(f.ID()), 10), faction).Set(f.Overclock().Heat())
	}
	for _, id := range w.Validator.AnalyticsFactions() {
		factions[id] = struct{}{}
	}
	for id := range factions {
		faction := factionLabel(id)
		c.spendableREE.WithLabelValues(faction).Set(w.Validator.SpendableREE(id))
		c.reservedREE.WithLabelValues(faction).Set(w.Validator.ReservedREE(id))
	}

	c.simulatedTime.Set(w.Clock.Elapsed())
	if w.Controller.IsPaused() {
		c.speedMultiplier.Set(0)
	} else {
		c.speedMultiplier.Set(w.Controller.SpeedMultiplier())
	}
}

func factionLabel(id shared.FactionID) string {
	if id.IsZero() {
		return "none"
	}
	return id.String()
}
