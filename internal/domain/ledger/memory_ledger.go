package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// DefaultBalanceCap bounds each resource balance
const DefaultBalanceCap = 1_000_000_000.0

// InMemoryLedger keeps per-faction REE and power balances with overflow and
// underflow protection.
type InMemoryLedger struct {
	balances   map[shared.FactionID]*Resources
	balanceCap float64
}

// NewInMemoryLedger creates an empty ledger; a non-positive cap uses DefaultBalanceCap
func NewInMemoryLedger(balanceCap float64) *InMemoryLedger {
	if balanceCap <= 0 {
		balanceCap = DefaultBalanceCap
	}
	return &InMemoryLedger{
		balances:   make(map[shared.FactionID]*Resources),
		balanceCap: balanceCap,
	}
}

func (l *InMemoryLedger) account(factionID shared.FactionID) *Resources {
	acc, ok := l.balances[factionID]
	if !ok {
		acc = &Resources{}
		l.balances[factionID] = acc
	}
	return acc
}

// Available returns the faction's balances; unknown factions have nothing
func (l *InMemoryLedger) Available(factionID shared.FactionID) Resources {
	if acc, ok := l.balances[factionID]; ok {
		return *acc
	}
	return Resources{}
}

// Deposit adds resources, refusing amounts that would exceed the cap
func (l *InMemoryLedger) Deposit(factionID shared.FactionID, ree, power float64) error {
	if err := validAmount("ree", ree); err != nil {
		return err
	}
	if err := validAmount("power", power); err != nil {
		return err
	}
	acc := l.account(factionID)
	if acc.REE+ree > l.balanceCap {
		return &ErrBalanceOverflow{FactionID: factionID, Resource: "REE", Balance: acc.REE, Amount: ree, Cap: l.balanceCap}
	}
	if acc.Power+power > l.balanceCap {
		return &ErrBalanceOverflow{FactionID: factionID, Resource: "power", Balance: acc.Power, Amount: power, Cap: l.balanceCap}
	}
	acc.REE += ree
	acc.Power += power
	return nil
}

// Consume deducts both resources or neither
func (l *InMemoryLedger) Consume(factionID shared.FactionID, ree, power float64) error {
	if err := validAmount("ree", ree); err != nil {
		return err
	}
	if err := validAmount("power", power); err != nil {
		return err
	}
	acc := l.Available(factionID)
	if ree > acc.REE+balanceEpsilon {
		return &ErrInsufficientFunds{FactionID: factionID, Resource: "REE", Requested: ree, Available: acc.REE}
	}
	if power > acc.Power+balanceEpsilon {
		return &ErrInsufficientFunds{FactionID: factionID, Resource: "power", Requested: power, Available: acc.Power}
	}
	if ree == 0 && power == 0 {
		return nil
	}
	stored := l.account(factionID)
	stored.REE = math.Max(0, stored.REE-ree)
	stored.Power = math.Max(0, stored.Power-power)
	return nil
}

// SetBalance overwrites a faction's balances
func (l *InMemoryLedger) SetBalance(factionID shared.FactionID, balance Resources) error {
	if err := validAmount("ree", balance.REE); err != nil {
		return err
	}
	if err := validAmount("power", balance.Power); err != nil {
		return err
	}
	if balance.REE > l.balanceCap || balance.Power > l.balanceCap {
		return &ErrBalanceOverflow{FactionID: factionID, Resource: "balance", Balance: math.Max(balance.REE, balance.Power), Cap: l.balanceCap}
	}
	*l.account(factionID) = balance
	return nil
}

// Factions lists every faction with an account, ordered by id
func (l *InMemoryLedger) Factions() []shared.FactionID {
	out := make([]shared.FactionID, 0, len(l.balances))
	for id := range l.balances {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value() < out[j].Value() })
	return out
}

// ToMap exports all balances
func (l *InMemoryLedger) ToMap() map[string]any {
	accounts := make([]map[string]any, 0, len(l.balances))
	for _, id := range l.Factions() {
		acc := l.balances[id]
		accounts = append(accounts, map[string]any{
			"faction_id": id.Value(),
			"ree":        acc.REE,
			"power":      acc.Power,
		})
	}
	return map[string]any{
		"balance_cap": l.balanceCap,
		"accounts":    accounts,
	}
}

// InMemoryLedgerFromMap reconstructs a ledger exported by ToMap
func InMemoryLedgerFromMap(m map[string]any) (*InMemoryLedger, error) {
	r := shared.NewStateReader(m)
	l := NewInMemoryLedger(r.Float("balance_cap"))
	accounts := r.Maps("accounts")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("ledger state: %w", err)
	}
	for _, am := range accounts {
		ar := shared.NewStateReader(am)
		id := ar.Int("faction_id")
		balance := Resources{REE: ar.Float("ree"), Power: ar.Float("power")}
		if err := ar.Err(); err != nil {
			return nil, fmt.Errorf("ledger account: %w", err)
		}
		faction, err := shared.NewFactionID(id)
		if err != nil {
			return nil, err
		}
		if err := l.SetBalance(faction, balance); err != nil {
			return nil, err
		}
	}
	return l, nil
}

const balanceEpsilon = 1e-9

func validAmount(field string, amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &ErrInvalidAmount{Field: field, Amount: amount}
	}
	return nil
}
