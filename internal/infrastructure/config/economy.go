package config

// EconomyConfig holds the cost table source and starting balances
type EconomyConfig struct {
	// YAML unit catalog; the built-in catalog is used when empty
	CatalogPath string `mapstructure:"catalog_path"`

	// Failure records retained per faction
	FailureHistorySize int `mapstructure:"failure_history_size" validate:"min=1"`

	// Upper bound on any single balance
	BalanceCap float64 `mapstructure:"balance_cap" validate:"gt=0"`

	// Run with an unlimited economy
	Sandbox bool `mapstructure:"sandbox"`

	// Per-faction starting state
	Factions []FactionEconomyConfig `mapstructure:"factions" validate:"dive"`
}

// FactionEconomyConfig seeds one faction
type FactionEconomyConfig struct {
	ID           int     `mapstructure:"id" validate:"min=1"`
	REE          float64 `mapstructure:"ree" validate:"gte=0"`
	Power        float64 `mapstructure:"power" validate:"gte=0"`
	CostModifier float64 `mapstructure:"cost_modifier" validate:"gte=0"`
}
