package amm

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/bank"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var provider = types.MustParseAddress("0x2000000000000000000000000000000000000001")

func e18(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewIntWithDecimal(1, 18))
}

func newBank(t *testing.T) *bank.Bank {
	t.Helper()
	tx, err := state.NewMemoryStore().Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return bank.New(tx)
}

func TestFirstMintLocksMinimumLiquidity(t *testing.T) {
	b := newBank(t)
	pair := NewPair("magic", "native")
	require.NoError(t, b.Mint("magic", provider, e18(10000)))
	require.NoError(t, b.Mint("native", provider, sdkmath.NewInt(10_000_000_000)))

	lp, err := pair.CreateLiquidityPosition(b, provider, e18(10000), sdkmath.NewInt(10_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, "9999999999999000", lp.String())

	locked, err := pair.PairedTokenBalanceOf(b, types.ZeroAddress)
	require.NoError(t, err)
	assert.True(t, locked.Equal(MinimumLiquidity))

	held, err := pair.PairedTokenBalanceOf(b, provider)
	require.NoError(t, err)
	assert.True(t, held.Equal(lp))

	token, native, err := pair.Reserves(b)
	require.NoError(t, err)
	assert.True(t, token.Equal(e18(10000)))
	assert.Equal(t, int64(10_000_000_000), native.Int64())
}

func TestLaterMintsUseSmallerRatio(t *testing.T) {
	b := newBank(t)
	pair := NewPair("magic", "native")
	require.NoError(t, b.Mint("magic", provider, sdkmath.NewInt(1_000_000)))
	require.NoError(t, b.Mint("native", provider, sdkmath.NewInt(1_000_000)))

	first, err := pair.CreateLiquidityPosition(b, provider, sdkmath.NewInt(100_000), sdkmath.NewInt(100_000))
	require.NoError(t, err)
	assert.Equal(t, int64(99_000), first.Int64())

	// Token side is double, native side binds.
	second, err := pair.CreateLiquidityPosition(b, provider, sdkmath.NewInt(20_000), sdkmath.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), second.Int64())
}

func TestDustDepositFails(t *testing.T) {
	b := newBank(t)
	pair := NewPair("magic", "native")
	require.NoError(t, b.Mint("magic", provider, sdkmath.NewInt(10)))
	require.NoError(t, b.Mint("native", provider, sdkmath.NewInt(10)))

	_, err := pair.CreateLiquidityPosition(b, provider, sdkmath.NewInt(10), sdkmath.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientLiquidityMinted)
}
