package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// transactionNamespace scopes name-based transaction ids so replays produce the same ids
var transactionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("rts-production/transactions"))

// TransactionID is a value object representing a pending transaction's identifier.
// The zero value is the invalid id returned by a denied reservation.
type TransactionID struct {
	value string
}

// NewSequentialTransactionID derives a deterministic UUID from a sequence number
func NewSequentialTransactionID(seq uint64) TransactionID {
	name := fmt.Sprintf("transaction-%d", seq)
	return TransactionID{value: uuid.NewSHA1(transactionNamespace, []byte(name)).String()}
}

// NewTransactionIDFromString creates a TransactionID from an existing UUID string
func NewTransactionIDFromString(id string) (TransactionID, error) {
	if id == "" {
		return TransactionID{}, fmt.Errorf("transaction_id cannot be empty")
	}

	// Validate UUID format
	_, err := uuid.Parse(id)
	if err != nil {
		return TransactionID{}, fmt.Errorf("invalid transaction_id format: %w", err)
	}

	return TransactionID{value: id}, nil
}

// Value returns the string value of the TransactionID
func (t TransactionID) Value() string {
	return t.value
}

// String returns a string representation of the TransactionID
func (t TransactionID) String() string {
	return t.value
}

// Equals checks if two TransactionIDs are equal
func (t TransactionID) Equals(other TransactionID) bool {
	return t.value == other.value
}

// IsZero checks if the TransactionID is the zero value (invalid)
func (t TransactionID) IsZero() bool {
	return t.value == ""
}
