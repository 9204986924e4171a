/*

Reward vault records: the append-only pool list, per user stake records and the global vault state.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// DrainPolicy decides how massUpdatePools divides the undistributed reward balance between pools.
type DrainPolicy string

const (
	// DrainSequential re-reads pendingRewards before every pool, so later pools in the same pass
	// see what earlier pools left behind.
	DrainSequential DrainPolicy = "sequential"
	// DrainSnapshot reads pendingRewards once per pass; every pool takes its weight share of that figure.
	DrainSnapshot DrainPolicy = "snapshot"
)

// Valid reports whether p is a known policy.
func (p DrainPolicy) Valid() bool {
	return p == DrainSequential || p == DrainSnapshot
}

// Pool is one stakeable asset ledger inside the vault.
type Pool struct {
	ID                uint64      `json:"id"`                   // Index in the pool list
	StakeToken        string      `json:"stake_token"`          // Denom users deposit (e.g., the LP token)
	AllocPoint        uint64      `json:"alloc_point"`          // Weight of this pool among all pools
	LastRewardBlock   uint64      `json:"last_reward_block"`    // Block at which AccRewardPerShare was last brought current
	AccRewardPerShare sdkmath.Int `json:"acc_reward_per_share"` // Cumulative reward per staked unit, scaled by 1e12
	Withdrawable      bool        `json:"withdrawable"`         // When false, withdraw and emergencyWithdraw fail
	TotalStaked       sdkmath.Int `json:"total_staked"`         // Stake token held by the vault for this pool
}

// UserInfo is a staker's record in one pool.
type UserInfo struct {
	Amount     sdkmath.Int `json:"amount"`      // Currently staked
	RewardDebt sdkmath.Int `json:"reward_debt"` // Amount * AccRewardPerShare / 1e12 at the last settlement
}

// NewUserInfo returns an empty stake record.
func NewUserInfo() UserInfo {
	return UserInfo{Amount: sdkmath.ZeroInt(), RewardDebt: sdkmath.ZeroInt()}
}

// VaultState holds the vault-wide parameters and running totals.
type VaultState struct {
	Admin                 Address     `json:"admin"`
	SuperAdmin            Address     `json:"super_admin"`
	DevAddress            Address     `json:"dev_address"`
	RewardToken           string      `json:"reward_token"`
	TotalAllocPoint       uint64      `json:"total_alloc_point"`
	DevFeeBps             uint64      `json:"dev_fee_bps"`
	AccountedRewards      sdkmath.Int `json:"accounted_rewards"` // Folded into accumulators, owed to stakers, not yet paid
	DrainPolicy           DrainPolicy `json:"drain_policy"`
	InitializedBlock      uint64      `json:"initialized_block"`
	GovernanceGraceBlocks uint64      `json:"governance_grace_blocks"`
	CumulativeRewards     sdkmath.Int `json:"cumulative_rewards"` // Every reward unit ever folded into a pool, dev cut included
	DevRewardsPaid        sdkmath.Int `json:"dev_rewards_paid"`
}
