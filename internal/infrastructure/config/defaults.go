package config

import (
	"time"

	"github.com/andrescamacho/rts-production/internal/domain/construction"
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/production"
)

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" && cfg.Database.Type == "sqlite" {
		cfg.Database.Path = "rts-production.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "rts"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "rts_production"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 10
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 2
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9464
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "localhost"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Simulation defaults mirror the domain defaults
	factory := production.DefaultFactoryConfig()
	if cfg.Simulation.TickRate == 0 {
		cfg.Simulation.TickRate = 20
	}
	if cfg.Simulation.MaxResourceWait == 0 {
		cfg.Simulation.MaxResourceWait = factory.MaxResourceWait
	}
	if cfg.Simulation.MeltdownDuration == 0 {
		cfg.Simulation.MeltdownDuration = factory.Overclock.MeltdownDuration
	}
	if cfg.Simulation.HeatGenerationRate == 0 {
		cfg.Simulation.HeatGenerationRate = factory.Overclock.HeatGenerationRate
	}
	if cfg.Simulation.HeatDissipationRate == 0 {
		cfg.Simulation.HeatDissipationRate = factory.Overclock.HeatDissipationRate
	}
	if cfg.Simulation.MaxHeat == 0 {
		cfg.Simulation.MaxHeat = factory.Overclock.MaxHeat
	}
	if cfg.Simulation.OverclockRampRate == 0 {
		cfg.Simulation.OverclockRampRate = factory.Overclock.RampRate
	}
	if cfg.Simulation.MaxOverclock == 0 {
		cfg.Simulation.MaxOverclock = factory.Overclock.MaxMultiplier
	}
	if cfg.Simulation.WarningThreshold == 0 {
		cfg.Simulation.WarningThreshold = factory.Overclock.WarningThreshold
	}
	if cfg.Simulation.QueueCapacity == 0 {
		cfg.Simulation.QueueCapacity = factory.QueueCapacity
	}
	if cfg.Simulation.BaseSpeed == 0 {
		cfg.Simulation.BaseSpeed = factory.BaseSpeed
	}
	if cfg.Simulation.FactoryMaxHealth == 0 {
		cfg.Simulation.FactoryMaxHealth = factory.MaxHealth
	}

	// Economy defaults
	if cfg.Economy.FailureHistorySize == 0 {
		cfg.Economy.FailureHistorySize = ledger.DefaultFailureHistorySize
	}
	if cfg.Economy.BalanceCap == 0 {
		cfg.Economy.BalanceCap = ledger.DefaultBalanceCap
	}

	// Construction defaults
	if cfg.Construction.MinFactoryDistance == 0 {
		cfg.Construction.MinFactoryDistance = construction.DefaultMinFactoryDistance
	}
	if cfg.Construction.MaxFactoriesPerFaction == 0 {
		cfg.Construction.MaxFactoriesPerFaction = construction.DefaultMaxFactoriesPerFaction
	}
	if cfg.Construction.BaseBuildTime == 0 {
		cfg.Construction.BaseBuildTime = construction.DefaultBaseBuildTime
	}
	if cfg.Construction.BuilderBonus == 0 {
		cfg.Construction.BuilderBonus = construction.DefaultBuilderBonus
	}

	// Server defaults
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = "/tmp/rts-production.pid"
	}
	if cfg.Server.SaveSlot == "" {
		cfg.Server.SaveSlot = "autosave"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
}
