package config

import (
	"github.com/andrescamacho/rts-production/internal/domain/construction"
)

// ConstructionConfig holds factory placement and buildout rules
type ConstructionConfig struct {
	MinFactoryDistance     float64 `mapstructure:"min_factory_distance" validate:"gte=0"`
	MaxFactoriesPerFaction int     `mapstructure:"max_factories_per_faction" validate:"min=1"`
	BaseBuildTime          float64 `mapstructure:"base_build_time" validate:"gt=0"`
	BuilderBonus           float64 `mapstructure:"builder_bonus" validate:"gte=0"`
}

// ToDomain converts the settings into the construction configuration
func (c ConstructionConfig) ToDomain() construction.Config {
	return construction.Config{
		MinFactoryDistance:     c.MinFactoryDistance,
		MaxFactoriesPerFaction: c.MaxFactoriesPerFaction,
		BaseBuildTime:          c.BaseBuildTime,
		BuilderBonus:           c.BuilderBonus,
	}
}
