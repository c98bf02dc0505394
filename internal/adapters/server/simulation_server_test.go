package server_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/adapters/metrics"
	"github.com/andrescamacho/rts-production/internal/adapters/server"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
)

type memoryStore struct {
	saves map[string]map[string]any
	calls int
	err   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saves: make(map[string]map[string]any)}
}

func (m *memoryStore) Save(_ context.Context, slot string, snapshot map[string]any) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.saves[slot] = snapshot
	return nil
}

type countingJournal struct{ flushes int }

func (j *countingJournal) Flush(context.Context) error {
	j.flushes++
	return nil
}

func scoutWorld(t *testing.T) *appProduction.World {
	t.Helper()
	w, err := appProduction.NewWorld(catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)
	faction := shared.MustNewFactionID(1)
	require.NoError(t, w.Deposit(faction, 100, 100))
	f, err := w.Coordinator.PlaceFactory(catalog.FactoryTypeSupport, faction, shared.NewVector3(0, 0, 0), "")
	require.NoError(t, err)
	_, err = w.Controller.QueueUnit(f.ID(), "scout")
	require.NoError(t, err)
	return w
}

func runFor(t *testing.T, srv *server.SimulationServer, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return srv.Run(ctx)
}

func TestSimulationServer_TicksUntilCancelledThenSaves(t *testing.T) {
	// Arrange
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	w := scoutWorld(t)
	store := newMemoryStore()
	journal := &countingJournal{}
	srv, err := server.NewSimulationServer(w, store, "skirmish", cfg.Simulation, cfg.Server, cfg.Metrics,
		server.WithUnpacedTicks(), server.WithJournal(journal))
	require.NoError(t, err)

	// Act
	err = runFor(t, srv, 100*time.Millisecond)

	// Assert
	require.NoError(t, err)
	require.Greater(t, srv.Ticks(), 0)
	assert.InDelta(t, float64(srv.Ticks())*cfg.Simulation.TickDelta(), w.Clock.Elapsed(), 1e-6)
	assert.Contains(t, store.saves, "skirmish")
	assert.GreaterOrEqual(t, journal.flushes, 1)
}

func TestSimulationServer_PeriodicSaves(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Server.SaveInterval = time.Nanosecond
	store := newMemoryStore()
	srv, err := server.NewSimulationServer(scoutWorld(t), store, "auto", cfg.Simulation, cfg.Server, cfg.Metrics,
		server.WithUnpacedTicks())
	require.NoError(t, err)

	require.NoError(t, runFor(t, srv, 50*time.Millisecond))

	assert.Greater(t, store.calls, 1, "periodic saves plus the final one")
}

func TestSimulationServer_FinalSaveFailureIsReported(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	store := newMemoryStore()
	store.err = errors.New("disk full")
	srv, err := server.NewSimulationServer(scoutWorld(t), store, "broken", cfg.Simulation, cfg.Server, cfg.Metrics,
		server.WithUnpacedTicks())
	require.NoError(t, err)

	err = runFor(t, srv, 20*time.Millisecond)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "final save")
	assert.Contains(t, err.Error(), "disk full")
}

func TestSimulationServer_ExportsProductionMetrics(t *testing.T) {
	// Arrange
	metrics.InitRegistry()
	t.Cleanup(func() { metrics.Registry = nil })
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Host = "127.0.0.1"
	cfg.Metrics.Port = 0
	w := scoutWorld(t)
	srv, err := server.NewSimulationServer(w, newMemoryStore(), "metrics", cfg.Simulation, cfg.Server, cfg.Metrics,
		server.WithUnpacedTicks())
	require.NoError(t, err)

	// Act
	require.NoError(t, runFor(t, srv, 100*time.Millisecond))

	// Assert
	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)
	found := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				found[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				found[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.InDelta(t, w.Clock.Elapsed(), found["rts_production_simulated_seconds"], 1e-6)
	assert.Equal(t, 1.0, found["rts_production_factories_active"])
	assert.Contains(t, found, "rts_production_commands_total")
}

func TestNewSimulationServer_RejectsMissingDependencies(t *testing.T) {
	cfg := config.Default()

	_, err := server.NewSimulationServer(nil, newMemoryStore(), "x", cfg.Simulation, cfg.Server, cfg.Metrics)
	assert.Error(t, err)

	_, err = server.NewSimulationServer(scoutWorld(t), nil, "x", cfg.Simulation, cfg.Server, cfg.Metrics)
	assert.Error(t, err)

	cfg.Simulation.TickRate = 0
	_, err = server.NewSimulationServer(scoutWorld(t), newMemoryStore(), "x", cfg.Simulation, cfg.Server, cfg.Metrics)
	assert.Error(t, err)
}
