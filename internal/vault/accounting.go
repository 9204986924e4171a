/*

Pure reward accounting. Nothing in this file reads or writes the store or moves tokens; the vault
operations compute with these functions, persist the results, and only then transfer.

*/

package vault

import (
	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
)

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10000
	// MaxDevFeeBps caps the dev skim at 10%.
	MaxDevFeeBps = 1000
	// DefaultDevFeeBps is the dev skim a fresh vault starts with.
	DefaultDevFeeBps = 724
)

// AccPrecision scales AccRewardPerShare.
var AccPrecision = sdkmath.NewInt(1_000_000_000_000)

// AccumulatedReward is amount * acc / 1e12.
func AccumulatedReward(amount, acc sdkmath.Int) sdkmath.Int {
	return amount.Mul(acc).Quo(AccPrecision)
}

// Pending is the reward owed to a stake record at accumulator acc. It never goes below zero.
func Pending(info types.UserInfo, acc sdkmath.Int) sdkmath.Int {
	owed := AccumulatedReward(info.Amount, acc).Sub(info.RewardDebt)
	if owed.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return owed
}

// PoolShare is the weight share of pending a pool with allocPoint takes; zero when no weight exists.
func PoolShare(pending sdkmath.Int, allocPoint, totalAllocPoint uint64) sdkmath.Int {
	if totalAllocPoint == 0 || !pending.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return pending.Mul(sdkmath.NewIntFromUint64(allocPoint)).Quo(sdkmath.NewIntFromUint64(totalAllocPoint))
}

// DevCut is reward * bps / 10000.
func DevCut(reward sdkmath.Int, devFeeBps uint64) sdkmath.Int {
	return reward.Mul(sdkmath.NewIntFromUint64(devFeeBps)).QuoRaw(BpsDenominator)
}

// Books are the vault-wide reward figures a pool update reads and moves.
type Books struct {
	RewardBalance    sdkmath.Int // Vault balance of the reward token
	AccountedRewards sdkmath.Int // Folded into accumulators, owed, unpaid
	StakedReward     sdkmath.Int // Reward token deposited as stake in some pool
}

// PendingRewards is the held reward balance not yet folded into any pool, floored at zero.
func (b Books) PendingRewards() sdkmath.Int {
	p := b.RewardBalance.Sub(b.AccountedRewards).Sub(b.StakedReward)
	if p.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return p
}

// Payable is how much reward the vault can actually hand out: its balance less staked principal.
func (b Books) Payable() sdkmath.Int {
	p := b.RewardBalance.Sub(b.StakedReward)
	if p.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return p
}

// Params are the vault settings an update depends on.
type Params struct {
	TotalAllocPoint uint64
	DevFeeBps       uint64
	Policy          types.DrainPolicy
}

// PoolUpdate is the outcome of bringing one pool current.
type PoolUpdate struct {
	Pool        types.Pool
	Changed     bool        // Pool record must be persisted
	PoolReward  sdkmath.Int // Weight share taken from pending rewards
	DevCut      sdkmath.Int // Part of PoolReward owed to the dev address
	Distributed sdkmath.Int // PoolReward less DevCut, folded into the accumulator
}

// UpdatePool brings pool current at block, taking its share of pending. The dev cut leaves the
// books' balance and the distributed part becomes accounted.
func UpdatePool(pool types.Pool, pending sdkmath.Int, p Params, block uint64, books *Books) PoolUpdate {
	u := PoolUpdate{Pool: pool, PoolReward: sdkmath.ZeroInt(), DevCut: sdkmath.ZeroInt(), Distributed: sdkmath.ZeroInt()}
	if pool.LastRewardBlock == block {
		return u
	}
	u.Changed = true
	u.Pool.LastRewardBlock = block
	if !pool.TotalStaked.IsPositive() {
		return u
	}

	u.PoolReward = PoolShare(pending, pool.AllocPoint, p.TotalAllocPoint)
	u.DevCut = DevCut(u.PoolReward, p.DevFeeBps)
	u.Distributed = u.PoolReward.Sub(u.DevCut)
	u.Pool.AccRewardPerShare = pool.AccRewardPerShare.Add(u.Distributed.Mul(AccPrecision).Quo(pool.TotalStaked))

	books.RewardBalance = books.RewardBalance.Sub(u.DevCut)
	books.AccountedRewards = books.AccountedRewards.Add(u.Distributed)
	return u
}

// MassUpdate brings every pool current in ascending id order. Under DrainSequential each pool
// re-reads pending rewards after the pools before it; under DrainSnapshot all pools share the
// figure read before the loop.
func MassUpdate(pools []types.Pool, p Params, block uint64, books *Books) []PoolUpdate {
	updates := make([]PoolUpdate, 0, len(pools))
	snapshot := books.PendingRewards()
	for _, pool := range pools {
		pending := snapshot
		if p.Policy != types.DrainSnapshot {
			pending = books.PendingRewards()
		}
		updates = append(updates, UpdatePool(pool, pending, p, block, books))
	}
	return updates
}

// Settlement is the outcome of settling a stake record.
type Settlement struct {
	Info types.UserInfo
	Owed sdkmath.Int // Pending reward at settlement
	Paid sdkmath.Int // What the vault can pay of Owed
}

// Settle pays out a record's pending reward, then applies delta to its stake and recomputes the
// debt against acc. A negative delta must not exceed the stake. Payment is capped by what the
// books can pay; the difference is forfeited.
func Settle(info types.UserInfo, acc, delta sdkmath.Int, books *Books) Settlement {
	s := Settlement{Owed: Pending(info, acc)}
	s.Paid = sdkmath.MinInt(s.Owed, books.Payable())

	books.RewardBalance = books.RewardBalance.Sub(s.Paid)
	books.AccountedRewards = books.AccountedRewards.Sub(s.Paid)
	if books.AccountedRewards.IsNegative() {
		books.AccountedRewards = sdkmath.ZeroInt()
	}

	s.Info.Amount = info.Amount.Add(delta)
	s.Info.RewardDebt = AccumulatedReward(s.Info.Amount, acc)
	return s
}
