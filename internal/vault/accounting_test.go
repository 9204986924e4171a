package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stakedPool(id, alloc uint64, staked int64) types.Pool {
	return types.Pool{
		ID:                id,
		StakeToken:        "lp" + string(rune('a'+id)),
		AllocPoint:        alloc,
		AccRewardPerShare: sdkmath.ZeroInt(),
		TotalStaked:       sdkmath.NewInt(staked),
		Withdrawable:      true,
	}
}

func TestPoolShareAndDevCut(t *testing.T) {
	tests := []struct {
		name    string
		pending int64
		alloc   uint64
		total   uint64
		bps     uint64
		share   int64
		cut     int64
	}{
		{"whole pool", 10000, 100, 100, 724, 10000, 724},
		{"half pool", 10000, 1, 2, 1000, 5000, 500},
		{"dust cut rounds down", 10, 100, 100, 724, 10, 0},
		{"no weight", 10000, 0, 0, 724, 0, 0},
		{"nothing pending", 0, 1, 1, 724, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			share := PoolShare(sdkmath.NewInt(tt.pending), tt.alloc, tt.total)
			assert.Equal(t, tt.share, share.Int64())
			assert.Equal(t, tt.cut, DevCut(share, tt.bps).Int64())
		})
	}
}

func TestPendingNeverNegative(t *testing.T) {
	info := types.UserInfo{Amount: sdkmath.NewInt(100), RewardDebt: sdkmath.NewInt(500)}
	assert.True(t, Pending(info, sdkmath.NewInt(1_000_000_000_000)).IsZero())

	info.RewardDebt = sdkmath.NewInt(40)
	assert.Equal(t, int64(60), Pending(info, sdkmath.NewInt(1_000_000_000_000)).Int64())
}

func TestBooks(t *testing.T) {
	b := Books{
		RewardBalance:    sdkmath.NewInt(1000),
		AccountedRewards: sdkmath.NewInt(300),
		StakedReward:     sdkmath.NewInt(200),
	}
	assert.Equal(t, int64(500), b.PendingRewards().Int64())
	assert.Equal(t, int64(800), b.Payable().Int64())

	b.AccountedRewards = sdkmath.NewInt(2000)
	assert.True(t, b.PendingRewards().IsZero())
	b.StakedReward = sdkmath.NewInt(5000)
	assert.True(t, b.Payable().IsZero())
}

func TestUpdatePool(t *testing.T) {
	books := Books{RewardBalance: sdkmath.NewInt(10000), AccountedRewards: sdkmath.ZeroInt(), StakedReward: sdkmath.ZeroInt()}
	p := Params{TotalAllocPoint: 100, DevFeeBps: 724}

	u := UpdatePool(stakedPool(0, 100, 100), books.PendingRewards(), p, 5, &books)
	require.True(t, u.Changed)
	assert.Equal(t, uint64(5), u.Pool.LastRewardBlock)
	assert.Equal(t, int64(724), u.DevCut.Int64())
	assert.Equal(t, int64(9276), u.Distributed.Int64())
	assert.Equal(t, "92760000000000", u.Pool.AccRewardPerShare.String())
	assert.Equal(t, int64(9276), books.RewardBalance.Int64())
	assert.Equal(t, int64(9276), books.AccountedRewards.Int64())

	// A second update in the same block is a no-op.
	again := UpdatePool(u.Pool, books.PendingRewards(), p, 5, &books)
	assert.False(t, again.Changed)
	assert.True(t, again.Distributed.IsZero())
}

func TestUpdatePoolWithoutStake(t *testing.T) {
	books := Books{RewardBalance: sdkmath.NewInt(10000), AccountedRewards: sdkmath.ZeroInt(), StakedReward: sdkmath.ZeroInt()}
	u := UpdatePool(stakedPool(0, 100, 0), books.PendingRewards(), Params{TotalAllocPoint: 100, DevFeeBps: 724}, 5, &books)
	assert.True(t, u.Changed)
	assert.Equal(t, uint64(5), u.Pool.LastRewardBlock)
	assert.True(t, u.DevCut.IsZero())
	assert.Equal(t, int64(10000), books.PendingRewards().Int64())
}

func TestMassUpdatePolicies(t *testing.T) {
	pools := []types.Pool{stakedPool(0, 1, 1), stakedPool(1, 1, 1)}
	newBooks := func() Books {
		return Books{RewardBalance: sdkmath.NewInt(10000), AccountedRewards: sdkmath.ZeroInt(), StakedReward: sdkmath.ZeroInt()}
	}

	t.Run("snapshot", func(t *testing.T) {
		books := newBooks()
		updates := MassUpdate(pools, Params{TotalAllocPoint: 2, DevFeeBps: 1000, Policy: types.DrainSnapshot}, 9, &books)
		require.Len(t, updates, 2)
		assert.Equal(t, int64(4500), updates[0].Distributed.Int64())
		assert.Equal(t, int64(4500), updates[1].Distributed.Int64())
		assert.True(t, books.PendingRewards().IsZero())
	})

	t.Run("sequential", func(t *testing.T) {
		books := newBooks()
		updates := MassUpdate(pools, Params{TotalAllocPoint: 2, DevFeeBps: 1000, Policy: types.DrainSequential}, 9, &books)
		require.Len(t, updates, 2)
		assert.Equal(t, int64(4500), updates[0].Distributed.Int64())
		assert.Equal(t, int64(2250), updates[1].Distributed.Int64())
		assert.Equal(t, int64(2500), books.PendingRewards().Int64())
	})
}

func TestSettle(t *testing.T) {
	books := Books{RewardBalance: sdkmath.NewInt(100), AccountedRewards: sdkmath.NewInt(100), StakedReward: sdkmath.ZeroInt()}
	acc := sdkmath.NewInt(1_000_000_000_000) // one reward unit per staked unit

	s := Settle(types.UserInfo{Amount: sdkmath.NewInt(60), RewardDebt: sdkmath.ZeroInt()}, acc, sdkmath.NewInt(40), &books)
	assert.Equal(t, int64(60), s.Owed.Int64())
	assert.Equal(t, int64(60), s.Paid.Int64())
	assert.Equal(t, int64(100), s.Info.Amount.Int64())
	assert.Equal(t, int64(100), s.Info.RewardDebt.Int64())
	assert.Equal(t, int64(40), books.RewardBalance.Int64())
	assert.Equal(t, int64(40), books.AccountedRewards.Int64())

	// Payment is capped at what the books hold.
	s = Settle(types.UserInfo{Amount: sdkmath.NewInt(90), RewardDebt: sdkmath.ZeroInt()}, acc, sdkmath.NewInt(-90), &books)
	assert.Equal(t, int64(90), s.Owed.Int64())
	assert.Equal(t, int64(40), s.Paid.Int64())
	assert.True(t, s.Info.Amount.IsZero())
	assert.True(t, books.RewardBalance.IsZero())
	assert.True(t, books.AccountedRewards.IsZero())
}
