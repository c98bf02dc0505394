package production

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// Statistics accumulates controller-level production counters
type Statistics struct {
	TotalProduced     int
	FailedSpawns      int
	FailedCommits     int
	UnpaidCharges     int
	ProducedByType    map[string]int
	ProducedByFaction map[shared.FactionID]int
	REEConsumed       float64
	PowerConsumed     float64
	Ticks             int
	SimulatedSeconds  float64
}

func newStatistics() Statistics {
	return Statistics{
		ProducedByType:    make(map[string]int),
		ProducedByFaction: make(map[shared.FactionID]int),
	}
}

func (s Statistics) clone() Statistics {
	out := s
	out.ProducedByType = make(map[string]int, len(s.ProducedByType))
	for k, v := range s.ProducedByType {
		out.ProducedByType[k] = v
	}
	out.ProducedByFaction = make(map[shared.FactionID]int, len(s.ProducedByFaction))
	for k, v := range s.ProducedByFaction {
		out.ProducedByFaction[k] = v
	}
	return out
}

// UnitTypes returns the produced unit types in name order
func (s Statistics) UnitTypes() []string {
	types := make([]string, 0, len(s.ProducedByType))
	for t := range s.ProducedByType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ToMap exports the counters; faction keys are decimal strings
func (s Statistics) ToMap() map[string]any {
	byType := make(map[string]any, len(s.ProducedByType))
	for k, v := range s.ProducedByType {
		byType[k] = v
	}
	byFaction := make(map[string]any, len(s.ProducedByFaction))
	for k, v := range s.ProducedByFaction {
		byFaction[strconv.Itoa(k.Value())] = v
	}
	return map[string]any{
		"total_produced":      s.TotalProduced,
		"failed_spawns":       s.FailedSpawns,
		"failed_commits":      s.FailedCommits,
		"unpaid_charges":      s.UnpaidCharges,
		"produced_by_type":    byType,
		"produced_by_faction": byFaction,
		"ree_consumed":        s.REEConsumed,
		"power_consumed":      s.PowerConsumed,
		"ticks":               s.Ticks,
		"simulated_seconds":   s.SimulatedSeconds,
	}
}

type statisticsState struct {
	TotalProduced     int            `mapstructure:"total_produced"`
	FailedSpawns      int            `mapstructure:"failed_spawns"`
	FailedCommits     int            `mapstructure:"failed_commits"`
	UnpaidCharges     int            `mapstructure:"unpaid_charges"`
	ProducedByType    map[string]int `mapstructure:"produced_by_type"`
	ProducedByFaction map[string]int `mapstructure:"produced_by_faction"`
	REEConsumed       float64        `mapstructure:"ree_consumed"`
	PowerConsumed     float64        `mapstructure:"power_consumed"`
	Ticks             int            `mapstructure:"ticks"`
	SimulatedSeconds  float64        `mapstructure:"simulated_seconds"`
}

// StatisticsFromMap rebuilds counters exported by ToMap
func StatisticsFromMap(m map[string]any) (Statistics, error) {
	var state statisticsState
	if err := shared.DecodeState(m, &state); err != nil {
		return Statistics{}, fmt.Errorf("statistics state: %w", err)
	}
	s := newStatistics()
	s.TotalProduced = state.TotalProduced
	s.FailedSpawns = state.FailedSpawns
	s.FailedCommits = state.FailedCommits
	s.UnpaidCharges = state.UnpaidCharges
	s.REEConsumed = state.REEConsumed
	s.PowerConsumed = state.PowerConsumed
	s.Ticks = state.Ticks
	s.SimulatedSeconds = state.SimulatedSeconds
	for k, v := range state.ProducedByType {
		s.ProducedByType[k] = v
	}
	for k, v := range state.ProducedByFaction {
		id, err := strconv.Atoi(k)
		if err != nil {
			return Statistics{}, fmt.Errorf("statistics state: faction key %q: %w", k, err)
		}
		faction, err := shared.NewFactionID(id)
		if err != nil {
			return Statistics{}, err
		}
		s.ProducedByFaction[faction] = v
	}
	return s, nil
}
