package ledger_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/domain/ledger"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

func TestInMemoryLedger_ConsumeIsAllOrNothing(t *testing.T) {
	// Arrange
	l := ledger.NewInMemoryLedger(0)
	faction := shared.MustNewFactionID(1)
	require.NoError(t, l.Deposit(faction, 100, 10))

	// Act
	err := l.Consume(faction, 50, 20)

	// Assert
	var insufficient *ledger.ErrInsufficientFunds
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "power", insufficient.Resource)
	assert.Equal(t, ledger.Resources{REE: 100, Power: 10}, l.Available(faction))

	require.NoError(t, l.Consume(faction, 50, 10))
	assert.Equal(t, ledger.Resources{REE: 50, Power: 0}, l.Available(faction))
}

func TestInMemoryLedger_DepositOverflow(t *testing.T) {
	l := ledger.NewInMemoryLedger(1000)
	faction := shared.MustNewFactionID(2)
	require.NoError(t, l.Deposit(faction, 900, 0))

	err := l.Deposit(faction, 200, 0)

	var overflow *ledger.ErrBalanceOverflow
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 900.0, l.Available(faction).REE)
}

func TestInMemoryLedger_RejectsInvalidAmounts(t *testing.T) {
	l := ledger.NewInMemoryLedger(0)
	faction := shared.MustNewFactionID(1)

	var invalid *ledger.ErrInvalidAmount
	assert.ErrorAs(t, l.Deposit(faction, -1, 0), &invalid)
	assert.ErrorAs(t, l.Consume(faction, math.NaN(), 0), &invalid)
}

func TestInMemoryLedger_UnknownFactionHasNothing(t *testing.T) {
	l := ledger.NewInMemoryLedger(0)

	assert.Equal(t, ledger.Resources{}, l.Available(shared.MustNewFactionID(9)))
	assert.NoError(t, l.Consume(shared.MustNewFactionID(9), 0, 0))
}

func TestInMemoryLedger_MapRoundTrip(t *testing.T) {
	l := ledger.NewInMemoryLedger(5000)
	require.NoError(t, l.Deposit(shared.MustNewFactionID(2), 250.5, 40))
	require.NoError(t, l.Deposit(shared.MustNewFactionID(1), 10, 0))

	restored, err := ledger.InMemoryLedgerFromMap(l.ToMap())

	require.NoError(t, err)
	assert.Equal(t, l.ToMap(), restored.ToMap())
	assert.Equal(t, []shared.FactionID{shared.MustNewFactionID(1), shared.MustNewFactionID(2)}, restored.Factions())
}

func TestUnlimitedLedger_AlwaysAffordable(t *testing.T) {
	l := ledger.OrUnlimited(nil)

	available := l.Available(shared.MustNewFactionID(1))

	assert.True(t, math.IsInf(available.REE, 1))
	assert.NoError(t, l.Consume(shared.MustNewFactionID(1), 1e9, 1e9))
}
