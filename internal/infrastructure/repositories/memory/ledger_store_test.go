package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurum-ledger/aurum_service/internal/domain/entities"
	apperrors "github.com/aurum-ledger/aurum_service/pkg/errors"
)

func TestLedgerStore_ApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	a := entities.Address("0x00000000000000000000000000000000000000aa")
	b := entities.Address("0x00000000000000000000000000000000000000bb")

	require.NoError(t, store.Apply(ctx, []entities.Movement{
		{Account: a, Type: entities.MovementMint, Amount: decimal.NewFromInt(100)},
	}))

	// The credit leads the failing debit in the group; neither may land.
	err := store.Apply(ctx, []entities.Movement{
		{Account: b, Type: entities.MovementCredit, Amount: decimal.NewFromInt(500)},
		{Account: a, Type: entities.MovementDebit, Amount: decimal.NewFromInt(500)},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientBalance, apperrors.CodeOf(err))

	acctA, err := store.Get(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, acctA)
	assert.True(t, acctA.Balance.Equal(decimal.NewFromInt(100)))

	acctB, err := store.Get(ctx, b)
	require.NoError(t, err)
	assert.Nil(t, acctB)
}

func TestLedgerStore_DebitSeesEarlierCreditInGroup(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	a := entities.Address("0x00000000000000000000000000000000000000aa")

	// A credit earlier in the same group covers a later debit.
	require.NoError(t, store.Apply(ctx, []entities.Movement{
		{Account: a, Type: entities.MovementCredit, Amount: decimal.NewFromInt(50)},
		{Account: a, Type: entities.MovementDebit, Amount: decimal.NewFromInt(30)},
	}))

	acct, err := store.Get(ctx, a)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(20)))
}

func TestLedgerStore_MintRaisesSupply(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	a := entities.Address("0x00000000000000000000000000000000000000aa")
	b := entities.Address("0x00000000000000000000000000000000000000bb")

	require.NoError(t, store.Apply(ctx, []entities.Movement{
		{Account: a, Type: entities.MovementMint, Amount: decimal.NewFromInt(100)},
	}))

	// Transfers move balances without touching supply.
	require.NoError(t, store.Apply(ctx, []entities.Movement{
		{Account: a, Type: entities.MovementDebit, Amount: decimal.NewFromInt(40)},
		{Account: b, Type: entities.MovementCredit, Amount: decimal.NewFromInt(40)},
	}))

	supply, err := store.TotalSupply(ctx)
	require.NoError(t, err)
	assert.True(t, supply.Equal(decimal.NewFromInt(100)))
}
