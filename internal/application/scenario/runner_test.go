package scenario_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/application/scenario"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
)

func run(t *testing.T, s *scenario.Scenario) *scenario.Report {
	t.Helper()
	world, err := scenario.NewWorld(s, catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)
	runner, err := scenario.NewRunner(world, zerolog.Nop())
	require.NoError(t, err)
	report, err := runner.Run(context.Background(), s)
	require.NoError(t, err)
	return report
}

func TestRunner_EconomyGateScenarioPasses(t *testing.T) {
	// Arrange
	s, err := scenario.Load(filepath.Join("testdata", "economy_gate.yaml"))
	require.NoError(t, err)

	// Act
	report := run(t, s)

	// Assert
	assert.Empty(t, report.Violations)
	assert.True(t, report.Passed())
	assert.Equal(t, 1, report.Denied)
	assert.Equal(t, 1, report.FactoriesBuilt)
	assert.Equal(t, 3, report.UnitsCompleted)
	assert.InDelta(t, 440.0, report.REEConsumed, 1e-6)
	assert.InDelta(t, 440.0, report.Statistics.REEConsumed, 1e-6)
	assert.Equal(t, 46, report.Ticks)
	assert.InDelta(t, 23.0, report.Elapsed, 1e-9)
}

func TestRunner_EliminationScenarioPasses(t *testing.T) {
	s, err := scenario.Load(filepath.Join("testdata", "elimination.yaml"))
	require.NoError(t, err)

	report := run(t, s)

	assert.Empty(t, report.Violations)
	assert.Equal(t, scenario.DefaultTickDelta, s.TickDelta)
}

func TestRunner_ReportsUnmetExpectations(t *testing.T) {
	// Arrange
	s, err := scenario.Parse([]byte(`
name: wrong-guess
factions: [{id: 1, ree: 100, power: 100}]
steps:
  - place_factory: {as: f, faction: 1, type: support, position: [0, 0, 0]}
  - queue: {factory: f, unit: scout, count: 3}
  - advance: {seconds: 1}
  - speed: {paused: true}
  - advance: {seconds: 5}
expect:
  units_produced: 1
  queues: {f: 0}
  overclock: {f: MELTDOWN}
`))
	require.NoError(t, err)

	// Act
	report := run(t, s)

	// Assert
	assert.False(t, report.Passed())
	assert.Equal(t, []string{
		"queue 3 scout on f: 1 refused, expected 0",
		"units produced: got 0, want 1",
		"queue of f: got 2, want 0",
		"overclock of f: got NORMAL, want MELTDOWN",
	}, report.Violations)
	assert.InDelta(t, 1.0, report.Elapsed, 1e-9, "paused frames do not advance the clock")
}

func TestRunner_UnexpectedStepFailureAborts(t *testing.T) {
	s, err := scenario.Parse([]byte(`
name: bad-factory
steps:
  - place_factory: {faction: 1, type: naval, position: [0, 0, 0]}
  - advance: {ticks: 1}
`))
	require.NoError(t, err)
	world, err := scenario.NewWorld(s, catalog.Default(), appProduction.DefaultWorldConfig())
	require.NoError(t, err)
	runner, err := scenario.NewRunner(world, zerolog.Nop())
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
	assert.Equal(t, 1, report.Steps)
}

func TestParse_RejectsMalformedScenarios(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "steps: [{advance: {ticks: 1}}]"},
		{"no steps", "name: x"},
		{"two actions", "name: x\nsteps: [{advance: {ticks: 1}, speed: {paused: true}}]"},
		{"empty step", "name: x\nsteps: [{expect_error: true}]"},
		{"typo", "name: x\nsteps: [{advnce: {ticks: 1}}]"},
		{"bad faction", "name: x\nfactions: [{id: 0}]\nsteps: [{advance: {ticks: 1}}]"},
		{"negative delta", "name: x\ntick_delta: -1\nsteps: [{advance: {ticks: 1}}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
