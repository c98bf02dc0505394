package ledger

import (
	"fmt"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// ErrInsufficientFunds indicates a faction cannot cover a cost
type ErrInsufficientFunds struct {
	FactionID shared.FactionID
	Resource  string
	Requested float64
	Available float64
}

func (e *ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient %s for faction %s: requested=%.2f, available=%.2f",
		e.Resource, e.FactionID, e.Requested, e.Available)
}

// ErrUnknownUnitType indicates the cost table has no entry for the unit type
type ErrUnknownUnitType struct {
	UnitType string
}

func (e *ErrUnknownUnitType) Error() string {
	return fmt.Sprintf("unknown unit type: %s", e.UnitType)
}

// ErrTransactionNotFound represents errors when a pending transaction cannot be found
type ErrTransactionNotFound struct {
	ID string
}

func (e *ErrTransactionNotFound) Error() string {
	return fmt.Sprintf("transaction not found: id=%s", e.ID)
}

// ErrBalanceOverflow indicates a deposit would exceed the balance cap
type ErrBalanceOverflow struct {
	FactionID shared.FactionID
	Resource  string
	Balance   float64
	Amount    float64
	Cap       float64
}

func (e *ErrBalanceOverflow) Error() string {
	return fmt.Sprintf("%s overflow for faction %s: balance=%.2f + amount=%.2f exceeds cap %.2f",
		e.Resource, e.FactionID, e.Balance, e.Amount, e.Cap)
}

// ErrInvalidAmount indicates a negative or non-finite amount
type ErrInvalidAmount struct {
	Field  string
	Amount float64
}

func (e *ErrInvalidAmount) Error() string {
	return fmt.Sprintf("invalid %s amount: %v", e.Field, e.Amount)
}
