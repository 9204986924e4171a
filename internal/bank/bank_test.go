package bank

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	minter = types.MustParseAddress("0x1000000000000000000000000000000000000001")
	john   = types.MustParseAddress("0x1000000000000000000000000000000000000002")
	vault  = types.ModuleAddress("vault")
)

func newBank(t *testing.T) *Bank {
	t.Helper()
	tx, err := state.NewMemoryStore().Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return New(tx)
}

func balance(t *testing.T, b *Bank, addr types.Address) int64 {
	t.Helper()
	bal, err := b.BalanceOf("magic", addr)
	require.NoError(t, err)
	return bal.Int64()
}

func TestFeeOnTransfer(t *testing.T) {
	b := newBank(t)
	require.NoError(t, b.Mint("magic", minter, sdkmath.NewInt(1_000_000)))
	require.NoError(t, b.SetFeeRule(types.FeeRule{Denom: "magic", FeePercentX100: 10, Distributor: vault}))

	received, err := b.Transfer("magic", minter, john, sdkmath.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(990), received.Int64())
	assert.Equal(t, int64(10), balance(t, b, vault))
	assert.Equal(t, int64(990), balance(t, b, john))
	assert.Equal(t, int64(999_000), balance(t, b, minter))

	require.NoError(t, b.SetFeeRule(types.FeeRule{Denom: "magic", FeePercentX100: 20, Distributor: vault}))
	_, err = b.Transfer("magic", minter, john, sdkmath.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance(t, b, vault))
	assert.Equal(t, int64(990+980), balance(t, b, john))

	// Dust transfers round the fee down to nothing.
	_, err = b.Transfer("magic", minter, john, sdkmath.NewInt(1))
	require.NoError(t, err)
	_, err = b.Transfer("magic", minter, john, sdkmath.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance(t, b, vault))
	assert.Equal(t, int64(990+980+3), balance(t, b, john))

	_, err = b.Transfer("magic", john, minter, sdkmath.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance(t, b, vault))

	supply, err := b.SupplyOf("magic")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), supply.Int64())
}

func TestExemptAddressesSkipFee(t *testing.T) {
	b := newBank(t)
	require.NoError(t, b.Mint("magic", vault, sdkmath.NewInt(1000)))
	require.NoError(t, b.SetFeeRule(types.FeeRule{
		Denom: "magic", FeePercentX100: 10, Distributor: vault, Exempt: []types.Address{vault},
	}))

	received, err := b.Transfer("magic", vault, john, sdkmath.NewInt(900))
	require.NoError(t, err)
	assert.Equal(t, int64(900), received.Int64())
	assert.Equal(t, int64(100), balance(t, b, vault))

	journal := b.Journal()
	require.Len(t, journal, 2)
	assert.Equal(t, types.ZeroAddress, journal[0].From)
	assert.Equal(t, john, journal[1].To)
}

func TestTransferRejections(t *testing.T) {
	b := newBank(t)
	require.NoError(t, b.Mint("magic", minter, sdkmath.NewInt(10)))

	_, err := b.Transfer("magic", minter, john, sdkmath.NewInt(11))
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	_, err = b.Transfer("magic", minter, john, sdkmath.NewInt(-1))
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	err = b.SetFeeRule(types.FeeRule{Denom: "magic", FeePercentX100: 1001, Distributor: vault})
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	b := newBank(t)
	require.NoError(t, b.Mint("lp", minter, sdkmath.NewInt(100)))
	require.NoError(t, b.Approve("lp", minter, vault, sdkmath.NewInt(60)))

	_, err := b.TransferFrom("lp", vault, minter, vault, sdkmath.NewInt(50))
	require.NoError(t, err)

	remaining, err := b.Allowance("lp", minter, vault)
	require.NoError(t, err)
	assert.Equal(t, int64(10), remaining.Int64())

	_, err = b.TransferFrom("lp", vault, minter, vault, sdkmath.NewInt(11))
	assert.ErrorIs(t, err, types.ErrInsufficientAllowance)
	assert.Equal(t, "InsufficientAllowance", types.Tag(err))
}

func TestCalculateFee(t *testing.T) {
	cases := []struct {
		amount int64
		pct    uint64
		want   int64
	}{
		{1000, 10, 10},
		{1000, 20, 20},
		{99, 10, 0},
		{100_000, 10, 1000},
		{1_000_000, 10, 10_000},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CalculateFee(sdkmath.NewInt(c.amount), c.pct).Int64())
	}
}

func TestQuoteTransferMatchesTransfer(t *testing.T) {
	b := newBank(t)
	require.NoError(t, b.Mint("magic", minter, sdkmath.NewInt(5000)))
	require.NoError(t, b.SetFeeRule(types.FeeRule{Denom: "magic", FeePercentX100: 10, Distributor: vault}))

	quoted, fee, err := b.QuoteTransfer("magic", minter, john, sdkmath.NewInt(4321))
	require.NoError(t, err)
	assert.Equal(t, int64(43), fee.Int64())

	received, err := b.Transfer("magic", minter, john, sdkmath.NewInt(4321))
	require.NoError(t, err)
	assert.True(t, quoted.Equal(received))
}
