package ledger

import (
	"math"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// Resources is a faction's spendable REE and power
type Resources struct {
	REE   float64
	Power float64
}

// ResourceLedger is the economy collaborator production draws from.
// Consume must deduct nothing when it returns an error.
type ResourceLedger interface {
	Available(factionID shared.FactionID) Resources
	Consume(factionID shared.FactionID, ree, power float64) error
}

// UnlimitedLedger is the sandbox economy: every check passes and nothing is deducted
type UnlimitedLedger struct{}

// NewUnlimitedLedger creates the sandbox ledger
func NewUnlimitedLedger() *UnlimitedLedger {
	return &UnlimitedLedger{}
}

// Available reports infinite REE and power
func (UnlimitedLedger) Available(shared.FactionID) Resources {
	return Resources{REE: math.Inf(1), Power: math.Inf(1)}
}

// Consume does nothing
func (UnlimitedLedger) Consume(shared.FactionID, float64, float64) error {
	return nil
}

// OrUnlimited returns l, or the sandbox ledger when l is nil
func OrUnlimited(l ResourceLedger) ResourceLedger {
	if l == nil {
		return NewUnlimitedLedger()
	}
	return l
}
