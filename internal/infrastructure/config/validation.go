package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that also knows the economy seeding rules
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(validateEconomy, EconomyConfig{})

	return &Validator{
		validate: v,
	}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func (v *Validator) formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, fmt.Sprintf(
				"field '%s' failed validation: %s (value: '%v')",
				e.Namespace(),
				e.Tag(),
				e.Value(),
			))
		}
		return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
	}
	return err
}

// validateEconomy rejects a faction seeded twice; the second deposit would
// silently stack on the first.
func validateEconomy(sl validator.StructLevel) {
	economy := sl.Current().Interface().(EconomyConfig)
	seen := make(map[int]bool, len(economy.Factions))
	for _, f := range economy.Factions {
		if seen[f.ID] {
			sl.ReportError(economy.Factions, "Factions", "factions", "unique_faction", fmt.Sprint(f.ID))
			return
		}
		seen[f.ID] = true
	}
}

// ValidateConfig validates the entire configuration
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
