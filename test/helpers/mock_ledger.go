package helpers

import (
	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// CountingLedger wraps a ResourceLedger and counts Consume calls per faction.
// When ConsumeErr is set every Consume fails with it and nothing is deducted.
type CountingLedger struct {
	ledger.ResourceLedger
	Consumes   map[shared.FactionID]int
	ConsumeErr error
}

// NewCountingLedger wraps inner
func NewCountingLedger(inner ledger.ResourceLedger) *CountingLedger {
	return &CountingLedger{ResourceLedger: inner, Consumes: make(map[shared.FactionID]int)}
}

// Consume implements the ResourceLedger interface
func (c *CountingLedger) Consume(factionID shared.FactionID, ree, power float64) error {
	c.Consumes[factionID]++
	if c.ConsumeErr != nil {
		return c.ConsumeErr
	}
	return c.ResourceLedger.Consume(factionID, ree, power)
}
