package production

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/pkg/utils"
)

// OverclockState represents the heat/speed mode of a factory
type OverclockState string

const (
	OverclockNormal      OverclockState = "NORMAL"
	OverclockOverclocked OverclockState = "OVERCLOCKED"
	OverclockMeltdown    OverclockState = "MELTDOWN"
	OverclockCooldown    OverclockState = "COOLDOWN"
)

// IsValid checks if the state is one of the defined constants
func (s OverclockState) IsValid() bool {
	switch s {
	case OverclockNormal, OverclockOverclocked, OverclockMeltdown, OverclockCooldown:
		return true
	}
	return false
}

// OverclockConfig holds the tuning of the heat model
type OverclockConfig struct {
	MaxMultiplier       float64 // upper bound of the speed target
	RampRate            float64 // speed change per second; 0 jumps straight to target
	HeatGenerationRate  float64 // heat per second at MaxMultiplier
	HeatDissipationRate float64 // heat per second in NORMAL, doubled in COOLDOWN
	MaxHeat             float64
	MeltdownDuration    float64 // seconds
	WarningThreshold    float64 // fraction of MaxHeat
}

// DefaultOverclockConfig returns the standard heat model
func DefaultOverclockConfig() OverclockConfig {
	return OverclockConfig{
		MaxMultiplier:       2.0,
		RampRate:            0.5,
		HeatGenerationRate:  10.0,
		HeatDissipationRate: 5.0,
		MaxHeat:             100.0,
		MeltdownDuration:    10.0,
		WarningThreshold:    0.7,
	}
}

// OverclockStatus is the complete mutable state of the heat model
type OverclockStatus struct {
	State         OverclockState
	Speed         float64
	Target        float64
	Heat          float64
	MeltdownTimer float64
	WarningIssued bool
}

// InitialOverclockStatus is a cold factory at normal speed
func InitialOverclockStatus() OverclockStatus {
	return OverclockStatus{State: OverclockNormal, Speed: 1.0, Target: 1.0}
}

// AdvanceOverclock computes the status after delta seconds and the events raised on the way.
// Reaching MaxHeat always lands in MELTDOWN regardless of the target.
func AdvanceOverclock(s OverclockStatus, cfg OverclockConfig, delta float64) (OverclockStatus, []events.EventType) {
	if delta <= 0 {
		return s, nil
	}
	var raised []events.EventType

	switch s.State {
	case OverclockNormal:
		s.Speed = 1.0
		s.Heat = utils.Clamp(s.Heat-cfg.HeatDissipationRate*delta, 0, cfg.MaxHeat)

	case OverclockOverclocked:
		s.Speed = rampToward(s.Speed, s.Target, cfg.RampRate*delta, cfg.RampRate <= 0)
		intensity := (s.Speed - 1.0) / (cfg.MaxMultiplier - 1.0)
		s.Heat = utils.Clamp(s.Heat+cfg.HeatGenerationRate*intensity*delta, 0, cfg.MaxHeat)
		if !s.WarningIssued && s.Heat >= cfg.WarningThreshold*cfg.MaxHeat {
			s.WarningIssued = true
			raised = append(raised, events.EventHeatWarning)
		}
		if s.Heat >= cfg.MaxHeat {
			s.State = OverclockMeltdown
			s.Heat = cfg.MaxHeat
			s.Speed = 0
			s.Target = 1.0
			s.MeltdownTimer = cfg.MeltdownDuration
			raised = append(raised, events.EventMeltdownStarted)
		}

	case OverclockMeltdown:
		s.Speed = 0
		s.Heat = cfg.MaxHeat
		s.MeltdownTimer -= delta
		if s.MeltdownTimer <= 0 {
			s.MeltdownTimer = 0
			s.State = OverclockCooldown
			s.Speed = 1.0
			s.Heat = cfg.MaxHeat / 2
			raised = append(raised, events.EventMeltdownRecovered)
		}

	case OverclockCooldown:
		s.Speed = 1.0
		s.Heat = utils.Clamp(s.Heat-2*cfg.HeatDissipationRate*delta, 0, cfg.MaxHeat)
		if s.Heat <= 0 {
			s.State = OverclockNormal
			s.WarningIssued = false
		}
	}
	return s, raised
}

// RetargetOverclock applies a player-chosen speed target
func RetargetOverclock(s OverclockStatus, cfg OverclockConfig, target float64) (OverclockStatus, []events.EventType, error) {
	if target < 1.0 || target > cfg.MaxMultiplier {
		return s, nil, &ErrInvalidOverclock{
			Target: target,
			State:  s.State,
			Reason: fmt.Sprintf("target must be within [1.0, %.1f]", cfg.MaxMultiplier),
		}
	}

	switch s.State {
	case OverclockMeltdown, OverclockCooldown:
		return s, nil, &ErrInvalidOverclock{Target: target, State: s.State, Reason: "factory is recovering from meltdown"}

	case OverclockNormal:
		if target <= 1.0 {
			return s, nil, nil
		}
		s.State = OverclockOverclocked
		s.Target = target
		return s, []events.EventType{events.EventOverclockStarted}, nil

	default:
		if target <= 1.0 {
			s.State = OverclockNormal
			s.Target = 1.0
			s.Speed = 1.0
			s.WarningIssued = false
			return s, []events.EventType{events.EventOverclockStopped}, nil
		}
		s.Target = target
		return s, nil, nil
	}
}

func rampToward(current, target, step float64, instant bool) float64 {
	if instant || utils.ApproxEqual(current, target, step) {
		return target
	}
	if current < target {
		return current + step
	}
	return current - step
}

// ProductionOverclock is the per-factory holder of the heat model
type ProductionOverclock struct {
	cfg    OverclockConfig
	status OverclockStatus
}

// NewProductionOverclock creates an overclock in NORMAL with no heat
func NewProductionOverclock(cfg OverclockConfig) *ProductionOverclock {
	return &ProductionOverclock{cfg: cfg, status: InitialOverclockStatus()}
}

func (o *ProductionOverclock) Config() OverclockConfig    { return o.cfg }
func (o *ProductionOverclock) Status() OverclockStatus    { return o.status }
func (o *ProductionOverclock) State() OverclockState      { return o.status.State }
func (o *ProductionOverclock) Heat() float64              { return o.status.Heat }
func (o *ProductionOverclock) Target() float64            { return o.status.Target }
func (o *ProductionOverclock) MeltdownRemaining() float64 { return o.status.MeltdownTimer }

// SpeedMultiplier is 0 during MELTDOWN and within [1, MaxMultiplier] otherwise
func (o *ProductionOverclock) SpeedMultiplier() float64 {
	return o.status.Speed
}

// HeatFraction is heat relative to capacity
func (o *ProductionOverclock) HeatFraction() float64 {
	if o.cfg.MaxHeat <= 0 {
		return 0
	}
	return o.status.Heat / o.cfg.MaxHeat
}

// Update advances the heat model
func (o *ProductionOverclock) Update(delta float64) []events.EventType {
	next, raised := AdvanceOverclock(o.status, o.cfg, delta)
	o.status = next
	return raised
}

// SetTarget applies a new speed target
func (o *ProductionOverclock) SetTarget(target float64) ([]events.EventType, error) {
	next, raised, err := RetargetOverclock(o.status, o.cfg, target)
	if err != nil {
		return nil, err
	}
	o.status = next
	return raised, nil
}

// ToMap exports state and tuning
func (o *ProductionOverclock) ToMap() map[string]any {
	return map[string]any{
		"state":                 string(o.status.State),
		"speed":                 o.status.Speed,
		"target":                o.status.Target,
		"heat":                  o.status.Heat,
		"meltdown_timer":        o.status.MeltdownTimer,
		"warning_issued":        o.status.WarningIssued,
		"max_multiplier":        o.cfg.MaxMultiplier,
		"ramp_rate":             o.cfg.RampRate,
		"heat_generation_rate":  o.cfg.HeatGenerationRate,
		"heat_dissipation_rate": o.cfg.HeatDissipationRate,
		"max_heat":              o.cfg.MaxHeat,
		"meltdown_duration":     o.cfg.MeltdownDuration,
		"warning_threshold":     o.cfg.WarningThreshold,
	}
}

// ProductionOverclockFromMap reconstructs an overclock exported by ToMap
func ProductionOverclockFromMap(m map[string]any) (*ProductionOverclock, error) {
	r := shared.NewStateReader(m)
	o := &ProductionOverclock{
		status: OverclockStatus{
			State:         OverclockState(r.String("state")),
			Speed:         r.Float("speed"),
			Target:        r.Float("target"),
			Heat:          r.Float("heat"),
			MeltdownTimer: r.Float("meltdown_timer"),
			WarningIssued: r.Bool("warning_issued"),
		},
		cfg: OverclockConfig{
			MaxMultiplier:       r.Float("max_multiplier"),
			RampRate:            r.Float("ramp_rate"),
			HeatGenerationRate:  r.Float("heat_generation_rate"),
			HeatDissipationRate: r.Float("heat_dissipation_rate"),
			MaxHeat:             r.Float("max_heat"),
			MeltdownDuration:    r.Float("meltdown_duration"),
			WarningThreshold:    r.Float("warning_threshold"),
		},
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("overclock state: %w", err)
	}
	if !o.status.State.IsValid() {
		return nil, shared.NewValidationError("state", fmt.Sprintf("unknown overclock state %q", o.status.State))
	}
	if o.status.Heat < 0 || o.status.Heat > o.cfg.MaxHeat {
		return nil, shared.NewValidationError("heat", "outside [0, max_heat]")
	}
	return o, nil
}
