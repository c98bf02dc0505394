package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// PendingTransaction is a reserved but uncommitted spend
type PendingTransaction struct {
	ID        TransactionID
	FactionID shared.FactionID
	UnitType  string
	REECost   float64
	CreatedAt time.Time
}

// ValidatorOption configures a ProductionCostValidator
type ValidatorOption func(*ProductionCostValidator)

// WithPublisher routes denial events to p
func WithPublisher(p events.Publisher) ValidatorOption {
	return func(v *ProductionCostValidator) { v.publisher = events.OrNop(p) }
}

// WithClock stamps transactions and failures with c
func WithClock(c shared.Clock) ValidatorOption {
	return func(v *ProductionCostValidator) { v.clock = c }
}

// WithLogger sets the component logger
func WithLogger(l zerolog.Logger) ValidatorOption {
	return func(v *ProductionCostValidator) {
		v.logger = l.With().Str("component", "cost_validator").Logger()
	}
}

// WithFailureHistorySize bounds each faction's failure ring buffer; n <= 0 keeps the default
func WithFailureHistorySize(n int) ValidatorOption {
	return func(v *ProductionCostValidator) {
		if n > 0 {
			v.historySize = n
		}
	}
}

// ProductionCostValidator is the single affordability gate between a faction's
// economy and production. Spending follows begin -> commit | cancel; nothing is
// deducted without a successful reservation.
type ProductionCostValidator struct {
	costs       *catalog.Catalog
	resources   ResourceLedger
	publisher   events.Publisher
	clock       shared.Clock
	logger      zerolog.Logger
	historySize int

	modifiers    map[shared.FactionID]float64
	pending      map[TransactionID]*PendingTransaction
	pendingOrder []TransactionID
	analytics    map[shared.FactionID]*FactionAnalytics
	nextSeq      uint64
}

// NewProductionCostValidator creates a validator over a cost table. A nil ledger
// selects the unlimited sandbox economy.
func NewProductionCostValidator(costs *catalog.Catalog, resources ResourceLedger, opts ...ValidatorOption) *ProductionCostValidator {
	v := &ProductionCostValidator{
		costs:       costs,
		resources:   OrUnlimited(resources),
		publisher:   events.NopPublisher{},
		clock:       shared.NewRealClock(),
		logger:      zerolog.Nop(),
		historySize: DefaultFailureHistorySize,
		modifiers:   make(map[shared.FactionID]float64),
		pending:     make(map[TransactionID]*PendingTransaction),
		analytics:   make(map[shared.FactionID]*FactionAnalytics),
		nextSeq:     1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Catalog returns the authoritative cost table
func (v *ProductionCostValidator) Catalog() *catalog.Catalog {
	return v.costs
}

// Ledger returns the economy collaborator
func (v *ProductionCostValidator) Ledger() ResourceLedger {
	return v.resources
}

// SetFactionModifier scales every REE cost for a faction
func (v *ProductionCostValidator) SetFactionModifier(factionID shared.FactionID, modifier float64) error {
	if modifier <= 0 {
		return shared.NewValidationError("modifier", "must be positive")
	}
	v.modifiers[factionID] = modifier
	return nil
}

// FactionModifier returns the faction's cost multiplier, 1.0 when unset
func (v *ProductionCostValidator) FactionModifier(factionID shared.FactionID) float64 {
	if m, ok := v.modifiers[factionID]; ok {
		return m
	}
	return 1.0
}

// EffectiveCost is base REE cost times the faction modifier
func (v *ProductionCostValidator) EffectiveCost(factionID shared.FactionID, unitType string) (float64, error) {
	cost, ok := v.costs.Lookup(unitType)
	if !ok {
		return 0, &ErrUnknownUnitType{UnitType: unitType}
	}
	return cost.REECost() * v.FactionModifier(factionID), nil
}

// ReservedREE sums the faction's open reservations
func (v *ProductionCostValidator) ReservedREE(factionID shared.FactionID) float64 {
	total := 0.0
	for _, id := range v.pendingOrder {
		if tx := v.pending[id]; tx.FactionID == factionID {
			total += tx.REECost
		}
	}
	return total
}

// SpendableREE is the ledger balance minus open reservations
func (v *ProductionCostValidator) SpendableREE(factionID shared.FactionID) float64 {
	return v.resources.Available(factionID).REE - v.ReservedREE(factionID)
}

// CanAfford reports whether BeginProduction would succeed, without side effects
func (v *ProductionCostValidator) CanAfford(factionID shared.FactionID, unitType string) bool {
	cost, err := v.EffectiveCost(factionID, unitType)
	if err != nil {
		return false
	}
	return cost <= v.SpendableREE(factionID)+balanceEpsilon
}

// BeginProduction reserves the unit's cost. On denial the returned id is zero, a
// production-denied event is published and the error says why.
func (v *ProductionCostValidator) BeginProduction(factionID shared.FactionID, unitType string) (TransactionID, error) {
	cost, err := v.EffectiveCost(factionID, unitType)
	if err != nil {
		v.deny(factionID, unitType, TransactionID{}, 0, 0, err.Error())
		return TransactionID{}, err
	}

	available := v.SpendableREE(factionID)
	if cost > available+balanceEpsilon {
		err := &ErrInsufficientFunds{FactionID: factionID, Resource: "REE", Requested: cost, Available: available}
		v.deny(factionID, unitType, TransactionID{}, cost, available, "insufficient REE")
		return TransactionID{}, err
	}

	tx := &PendingTransaction{
		ID:        NewSequentialTransactionID(v.nextSeq),
		FactionID: factionID,
		UnitType:  unitType,
		REECost:   cost,
		CreatedAt: v.clock.Now(),
	}
	v.nextSeq++
	v.pending[tx.ID] = tx
	v.pendingOrder = append(v.pendingOrder, tx.ID)

	v.logger.Debug().
		Str("transaction_id", tx.ID.String()).
		Int("faction_id", factionID.Value()).
		Str("unit_type", unitType).
		Float64("ree_cost", cost).
		Msg("Production cost reserved")
	return tx.ID, nil
}

// CommitProduction re-validates against the current balance, deducts, and
// removes the transaction whatever the outcome.
func (v *ProductionCostValidator) CommitProduction(id TransactionID) error {
	tx, ok := v.pending[id]
	if !ok {
		return &ErrTransactionNotFound{ID: id.String()}
	}
	v.remove(id)

	balance := v.resources.Available(tx.FactionID).REE
	if tx.REECost > balance+balanceEpsilon {
		v.deny(tx.FactionID, tx.UnitType, id, tx.REECost, balance, "balance changed since reservation")
		return &ErrInsufficientFunds{FactionID: tx.FactionID, Resource: "REE", Requested: tx.REECost, Available: balance}
	}
	if err := v.resources.Consume(tx.FactionID, tx.REECost, 0); err != nil {
		v.deny(tx.FactionID, tx.UnitType, id, tx.REECost, balance, err.Error())
		return fmt.Errorf("commit %s: %w", id, err)
	}

	v.analyticsFor(tx.FactionID).recordSuccess(tx.REECost)
	v.logger.Debug().
		Str("transaction_id", id.String()).
		Int("faction_id", tx.FactionID.Value()).
		Str("unit_type", tx.UnitType).
		Float64("ree_cost", tx.REECost).
		Msg("Production cost committed")
	return nil
}

// CancelProduction drops a reservation without deducting. Unknown ids return false.
func (v *ProductionCostValidator) CancelProduction(id TransactionID) bool {
	tx, ok := v.pending[id]
	if !ok {
		return false
	}
	v.remove(id)
	v.logger.Debug().
		Str("transaction_id", id.String()).
		Int("faction_id", tx.FactionID.Value()).
		Str("unit_type", tx.UnitType).
		Msg("Production reservation cancelled")
	return true
}

// ValidateAndConsume reserves and commits in one step; no transaction is left open
func (v *ProductionCostValidator) ValidateAndConsume(factionID shared.FactionID, unitType string) error {
	id, err := v.BeginProduction(factionID, unitType)
	if err != nil {
		return err
	}
	return v.CommitProduction(id)
}

// RecordDirectProduction accounts for a unit paid per tick outside a reservation
func (v *ProductionCostValidator) RecordDirectProduction(factionID shared.FactionID, reeSpent float64) {
	v.analyticsFor(factionID).recordSuccess(reeSpent)
}

// PendingTransactions lists open reservations in creation order
func (v *ProductionCostValidator) PendingTransactions() []PendingTransaction {
	out := make([]PendingTransaction, 0, len(v.pendingOrder))
	for _, id := range v.pendingOrder {
		out = append(out, *v.pending[id])
	}
	return out
}

// Pending looks up an open reservation
func (v *ProductionCostValidator) Pending(id TransactionID) (PendingTransaction, bool) {
	tx, ok := v.pending[id]
	if !ok {
		return PendingTransaction{}, false
	}
	return *tx, true
}

// PendingCount is the number of open reservations
func (v *ProductionCostValidator) PendingCount() int {
	return len(v.pendingOrder)
}

// Analytics returns a copy of the faction's accounting
func (v *ProductionCostValidator) Analytics(factionID shared.FactionID) FactionAnalytics {
	if a, ok := v.analytics[factionID]; ok {
		return a.clone()
	}
	return FactionAnalytics{}
}

// AnalyticsFactions lists factions with accounting, ordered by id
func (v *ProductionCostValidator) AnalyticsFactions() []shared.FactionID {
	out := make([]shared.FactionID, 0, len(v.analytics))
	for id := range v.analytics {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value() < out[j].Value() })
	return out
}

func (v *ProductionCostValidator) analyticsFor(factionID shared.FactionID) *FactionAnalytics {
	a, ok := v.analytics[factionID]
	if !ok {
		a = &FactionAnalytics{}
		v.analytics[factionID] = a
	}
	return a
}

func (v *ProductionCostValidator) remove(id TransactionID) {
	delete(v.pending, id)
	for i, pid := range v.pendingOrder {
		if pid == id {
			v.pendingOrder = append(v.pendingOrder[:i], v.pendingOrder[i+1:]...)
			break
		}
	}
}

func (v *ProductionCostValidator) deny(factionID shared.FactionID, unitType string, id TransactionID, requested, available float64, reason string) {
	v.analyticsFor(factionID).recordFailure(FailureRecord{
		UnitType:  unitType,
		Requested: requested,
		Available: available,
		Reason:    reason,
		Timestamp: v.clock.Now(),
	}, v.historySize)

	v.logger.Warn().
		Int("faction_id", factionID.Value()).
		Str("unit_type", unitType).
		Float64("requested", requested).
		Float64("available", available).
		Str("reason", reason).
		Msg("Production denied")

	v.publisher.Publish(events.Event{
		Type:          events.EventProductionDenied,
		FactionID:     factionID,
		UnitType:      unitType,
		TransactionID: id.String(),
		Requested:     requested,
		Available:     available,
		Reason:        reason,
	})
}

// ToMap exports modifiers, pending transactions and analytics
func (v *ProductionCostValidator) ToMap() map[string]any {
	modifiers := make([]map[string]any, 0, len(v.modifiers))
	ids := make([]shared.FactionID, 0, len(v.modifiers))
	for id := range v.modifiers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Value() < ids[j].Value() })
	for _, id := range ids {
		modifiers = append(modifiers, map[string]any{"faction_id": id.Value(), "modifier": v.modifiers[id]})
	}

	pending := make([]map[string]any, 0, len(v.pendingOrder))
	for _, tx := range v.PendingTransactions() {
		pending = append(pending, map[string]any{
			"id":         tx.ID.String(),
			"faction_id": tx.FactionID.Value(),
			"unit_type":  tx.UnitType,
			"ree_cost":   tx.REECost,
			"created_at": tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	analytics := make([]map[string]any, 0, len(v.analytics))
	for _, id := range v.AnalyticsFactions() {
		analytics = append(analytics, v.analytics[id].toMap(id))
	}

	return map[string]any{
		"next_sequence":        int64(v.nextSeq),
		"failure_history_size": v.historySize,
		"modifiers":            modifiers,
		"pending":              pending,
		"analytics":            analytics,
	}
}

// ProductionCostValidatorFromMap restores state exported by ToMap onto a new validator
func ProductionCostValidatorFromMap(m map[string]any, costs *catalog.Catalog, resources ResourceLedger, opts ...ValidatorOption) (*ProductionCostValidator, error) {
	v := NewProductionCostValidator(costs, resources, opts...)
	r := shared.NewStateReader(m)
	v.nextSeq = uint64(r.Int64("next_sequence"))
	v.historySize = r.Int("failure_history_size")
	modifierMaps := r.Maps("modifiers")
	pendingMaps := r.Maps("pending")
	analyticsMaps := r.Maps("analytics")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("validator state: %w", err)
	}

	for _, mm := range modifierMaps {
		mr := shared.NewStateReader(mm)
		id, modifier := mr.Int("faction_id"), mr.Float("modifier")
		if err := mr.Err(); err != nil {
			return nil, fmt.Errorf("validator modifier: %w", err)
		}
		faction, err := shared.NewFactionID(id)
		if err != nil {
			return nil, err
		}
		if err := v.SetFactionModifier(faction, modifier); err != nil {
			return nil, err
		}
	}

	for _, pm := range pendingMaps {
		pr := shared.NewStateReader(pm)
		rawID, factionID := pr.String("id"), pr.Int("faction_id")
		unitType, cost := pr.String("unit_type"), pr.Float("ree_cost")
		createdAt := pr.String("created_at")
		if err := pr.Err(); err != nil {
			return nil, fmt.Errorf("validator transaction: %w", err)
		}
		id, err := NewTransactionIDFromString(rawID)
		if err != nil {
			return nil, err
		}
		faction, err := shared.NewFactionID(factionID)
		if err != nil {
			return nil, err
		}
		stamp, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		v.pending[id] = &PendingTransaction{ID: id, FactionID: faction, UnitType: unitType, REECost: cost, CreatedAt: stamp}
		v.pendingOrder = append(v.pendingOrder, id)
	}

	for _, am := range analyticsMaps {
		faction, a, err := analyticsFromMap(am)
		if err != nil {
			return nil, fmt.Errorf("validator analytics: %w", err)
		}
		if v.historySize > 0 && len(a.failures) > v.historySize {
			a.failures = a.failures[len(a.failures)-v.historySize:]
		}
		v.analytics[faction] = a
	}
	return v, nil
}
