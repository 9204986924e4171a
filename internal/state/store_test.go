package state

import (
	"context"
	"strings"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.MustParseAddress("0x00000000000000000000000000000000000a11ce")
	bob   = types.MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

func bigInt(t *testing.T, s string) sdkmath.Int {
	t.Helper()
	v, ok := sdkmath.NewIntFromString(s)
	require.True(t, ok)
	return v
}

func begin(t *testing.T, s Store) Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, s Store) {
	t.Run("missing records read as zero", func(t *testing.T) {
		tx := begin(t, s)

		bal, err := tx.Balance("magic", alice)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())

		info, err := tx.UserInfo(0, alice)
		require.NoError(t, err)
		assert.True(t, info.Amount.IsZero())
		assert.True(t, info.RewardDebt.IsZero())

		c, err := tx.Contribution(alice)
		require.NoError(t, err)
		assert.True(t, c.Amount.IsZero())
		assert.False(t, c.Claimed)

		_, err = tx.VaultState()
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tx.LGEState()
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tx.Pool(0)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tx.FeeRule("magic")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		tx := begin(t, s)
		require.NoError(t, tx.SetBalance("magic", bob, sdkmath.NewInt(7)))
		require.NoError(t, tx.Rollback())

		tx = begin(t, s)
		bal, err := tx.Balance("magic", bob)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())
	})

	t.Run("committed writes are durable", func(t *testing.T) {
		huge := bigInt(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935")

		tx := begin(t, s)
		require.NoError(t, tx.SetHead(types.Head{Height: 3, Time: 1700000000}))
		require.NoError(t, tx.SetBalance("magic", alice, huge))
		require.NoError(t, tx.SetSupply("magic", huge))
		require.NoError(t, tx.SetTokenAllowance("magic", alice, bob, sdkmath.NewInt(55)))
		require.NoError(t, tx.SetFeeRule(types.FeeRule{
			Denom: "magic", FeePercentX100: 10, Distributor: bob, Exempt: []types.Address{alice},
		}))
		require.NoError(t, tx.SetVaultState(types.VaultState{
			Admin: alice, RewardToken: "magic", DevFeeBps: 724, DrainPolicy: types.DrainSequential,
			AccountedRewards: sdkmath.NewInt(12), CumulativeRewards: sdkmath.NewInt(30), DevRewardsPaid: sdkmath.NewInt(2),
		}))
		require.NoError(t, tx.PutPool(types.Pool{
			ID: 0, StakeToken: "lp", AllocPoint: 100, LastRewardBlock: 2,
			AccRewardPerShare: sdkmath.NewInt(1_000_000_000_000), Withdrawable: true, TotalStaked: sdkmath.NewInt(100),
		}))
		require.NoError(t, tx.PutUserInfo(0, alice, types.UserInfo{Amount: sdkmath.NewInt(100), RewardDebt: sdkmath.NewInt(40)}))
		require.NoError(t, tx.SetPoolAllowance(0, alice, bob, sdkmath.NewInt(9)))
		require.NoError(t, tx.PutContribution(bob, types.Contribution{Amount: sdkmath.NewInt(5), Claimed: true}))
		require.NoError(t, tx.Commit())

		tx = begin(t, s)
		head, err := tx.Head()
		require.NoError(t, err)
		assert.Equal(t, types.Head{Height: 3, Time: 1700000000}, head)

		bal, err := tx.Balance("magic", alice)
		require.NoError(t, err)
		assert.True(t, bal.Equal(huge))

		allowance, err := tx.TokenAllowance("magic", alice, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(55), allowance.Int64())

		rule, err := tx.FeeRule("magic")
		require.NoError(t, err)
		assert.Equal(t, uint64(10), rule.FeePercentX100)
		assert.True(t, rule.IsExempt(alice))
		assert.False(t, rule.IsExempt(bob))

		vs, err := tx.VaultState()
		require.NoError(t, err)
		assert.Equal(t, uint64(724), vs.DevFeeBps)
		assert.Equal(t, int64(12), vs.AccountedRewards.Int64())

		n, err := tx.PoolCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)

		pool, err := tx.Pool(0)
		require.NoError(t, err)
		assert.Equal(t, "lp", pool.StakeToken)
		assert.Equal(t, int64(100), pool.TotalStaked.Int64())
		assert.True(t, pool.Withdrawable)

		info, err := tx.UserInfo(0, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(40), info.RewardDebt.Int64())

		pal, err := tx.PoolAllowance(0, alice, bob)
		require.NoError(t, err)
		assert.Equal(t, int64(9), pal.Int64())

		c, err := tx.Contribution(bob)
		require.NoError(t, err)
		assert.True(t, c.Claimed)
	})

	t.Run("pools are append only", func(t *testing.T) {
		tx := begin(t, s)
		n, err := tx.PoolCount()
		require.NoError(t, err)
		err = tx.PutPool(types.Pool{ID: n + 1, StakeToken: "gap", AccRewardPerShare: sdkmath.ZeroInt(), TotalStaked: sdkmath.ZeroInt()})
		assert.Error(t, err)
	})

	t.Run("recent receipts newest first", func(t *testing.T) {
		tx := begin(t, s)
		for h := uint64(10); h < 15; h++ {
			require.NoError(t, tx.AppendReceipt(types.Receipt{
				ID: uuid.NewString(), Height: h, Time: int64(h), Op: "deposit", Sender: alice, Success: true,
			}))
		}
		require.NoError(t, tx.Commit())

		tx = begin(t, s)
		receipts, err := tx.RecentReceipts(3)
		require.NoError(t, err)
		require.Len(t, receipts, 3)
		assert.Equal(t, uint64(14), receipts[0].Height)
		assert.Equal(t, uint64(12), receipts[2].Height)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestMemoryStoreSnapshots(t *testing.T) {
	s := NewMemoryStore()
	write := func(amount int64) {
		tx := begin(t, s)
		require.NoError(t, tx.SetBalance("magic", alice, sdkmath.NewInt(amount)))
		require.NoError(t, tx.Commit())
	}
	balance := func(tx Tx) int64 {
		bal, err := tx.Balance("magic", alice)
		require.NoError(t, err)
		return bal.Int64()
	}
	latest := func() int64 {
		tx, err := s.Begin(context.Background())
		require.NoError(t, err)
		defer tx.Rollback()
		return balance(tx)
	}
	versions := func() int {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for k, v := range s.data {
			if strings.HasPrefix(k, BalancePrefix) {
				return len(v)
			}
		}
		return 0
	}

	write(1)
	reader := begin(t, s)
	write(2)
	write(3)

	// An open transaction keeps reading the state it began with, scans included.
	assert.Equal(t, int64(1), balance(reader))
	var scanned int
	require.NoError(t, reader.(*kvTx).kv.scan(BalancePrefix, false, func(string, []byte) (bool, error) {
		scanned++
		return true, nil
	}))
	assert.Equal(t, 1, scanned)
	assert.Equal(t, int64(3), latest())

	// Only the version reader pins is kept besides the newest; it goes once reader finishes.
	assert.Equal(t, 2, versions())
	require.NoError(t, reader.Rollback())
	write(4)
	assert.Equal(t, 1, versions())
	assert.Equal(t, int64(4), latest())
}
