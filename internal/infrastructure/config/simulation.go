package config

import (
	"github.com/andrescamacho/rts-production/internal/domain/production"
)

// SimulationConfig tunes the production tick and factory behaviour
type SimulationConfig struct {
	// Fixed-step tick rate in Hz used by serve and simulate
	TickRate float64 `mapstructure:"tick_rate" validate:"gt=0,lte=240"`

	// Seconds a head job may wait for resources before it is requeued
	MaxResourceWait float64 `mapstructure:"max_resource_wait" validate:"gt=0"`

	// Overclock tuning
	MeltdownDuration    float64 `mapstructure:"meltdown_duration" validate:"gt=0"`
	HeatGenerationRate  float64 `mapstructure:"heat_generation_rate" validate:"gt=0"`
	HeatDissipationRate float64 `mapstructure:"heat_dissipation_rate" validate:"gt=0"`
	MaxHeat             float64 `mapstructure:"max_heat" validate:"gt=0"`
	OverclockRampRate   float64 `mapstructure:"overclock_ramp_rate" validate:"gte=0"`
	MaxOverclock        float64 `mapstructure:"max_overclock" validate:"gt=1"`
	WarningThreshold    float64 `mapstructure:"warning_threshold" validate:"gt=0,lt=1"`

	// Factory defaults
	QueueCapacity    int     `mapstructure:"queue_capacity" validate:"min=1"`
	BaseSpeed        float64 `mapstructure:"base_speed" validate:"gt=0"`
	FactoryMaxHealth float64 `mapstructure:"factory_max_health" validate:"gt=0"`
}

// FactoryConfig converts the settings into the factory configuration
func (s SimulationConfig) FactoryConfig() production.FactoryConfig {
	return production.FactoryConfig{
		BaseSpeed:       s.BaseSpeed,
		MaxHealth:       s.FactoryMaxHealth,
		QueueCapacity:   s.QueueCapacity,
		MaxResourceWait: s.MaxResourceWait,
		Overclock: production.OverclockConfig{
			MaxMultiplier:       s.MaxOverclock,
			RampRate:            s.OverclockRampRate,
			HeatGenerationRate:  s.HeatGenerationRate,
			HeatDissipationRate: s.HeatDissipationRate,
			MaxHeat:             s.MaxHeat,
			MeltdownDuration:    s.MeltdownDuration,
			WarningThreshold:    s.WarningThreshold,
		},
	}
}

// TickDelta is the seconds one tick represents
func (s SimulationConfig) TickDelta() float64 {
	return 1.0 / s.TickRate
}
