package vault

import (
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/utils"
)

// StakeResult is recorded in the receipt of deposits and withdrawals.
type StakeResult struct {
	Pid        uint64        `json:"pid"`
	Owner      types.Address `json:"owner"`
	Amount     sdkmath.Int   `json:"amount"`      // Stake moved in or out
	Staked     sdkmath.Int   `json:"staked"`      // Owner's stake afterwards
	RewardPaid sdkmath.Int   `json:"reward_paid"` // Pending reward settled to the owner
}

func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount
	}
	return nil
}

// Deposit stakes amount of the pool's token for the sender. Depositing zero harvests.
func (v *Vault) Deposit(tx *ledger.Tx, pid uint64, amount sdkmath.Int) (*StakeResult, error) {
	return v.DepositFor(tx, tx.Sender, pid, amount)
}

// DepositFor stakes the sender's tokens on behalf of beneficiary, whose pending reward is settled.
func (v *Vault) DepositFor(tx *ledger.Tx, beneficiary types.Address, pid uint64, amount sdkmath.Int) (*StakeResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	vs, err := v.loadState(tx)
	if err != nil {
		return nil, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return nil, err
	}
	if err := checkPid(pools, pid); err != nil {
		return nil, err
	}
	if pools, _, err = v.massUpdate(tx, &vs, pools); err != nil {
		return nil, err
	}
	pool := pools[pid]

	info, err := tx.UserInfo(pid, beneficiary)
	if err != nil {
		return nil, err
	}
	books, err := v.loadBooks(tx, vs, pools)
	if err != nil {
		return nil, err
	}
	received, _, err := tx.Bank.QuoteTransfer(pool.StakeToken, tx.Sender, v.Address, amount)
	if err != nil {
		return nil, err
	}

	s := Settle(info, pool.AccRewardPerShare, received, &books)
	pool.TotalStaked = pool.TotalStaked.Add(received)
	vs.AccountedRewards = books.AccountedRewards
	if err := v.persistStake(tx, vs, pool, beneficiary, s.Info); err != nil {
		return nil, err
	}

	if amount.IsPositive() {
		got, err := tx.Bank.Transfer(pool.StakeToken, tx.Sender, v.Address, amount)
		if err != nil {
			return nil, err
		}
		if !got.Equal(received) {
			return nil, fmt.Errorf("%w: quoted %s, received %s", types.ErrExternalTransferFailed, received, got)
		}
	}
	if err := v.payReward(tx, vs.RewardToken, beneficiary, s.Paid); err != nil {
		return nil, err
	}
	return &StakeResult{Pid: pid, Owner: beneficiary, Amount: received, Staked: s.Info.Amount, RewardPaid: s.Paid}, nil
}

// Withdraw unstakes amount for the sender and settles their pending reward.
func (v *Vault) Withdraw(tx *ledger.Tx, pid uint64, amount sdkmath.Int) (*StakeResult, error) {
	return v.withdraw(tx, tx.Sender, tx.Sender, pid, amount, false)
}

// WithdrawFrom unstakes owner's tokens to the sender, spending the sender's pool allowance. The
// owner's pending reward is settled to the owner.
func (v *Vault) WithdrawFrom(tx *ledger.Tx, owner types.Address, pid uint64, amount sdkmath.Int) (*StakeResult, error) {
	return v.withdraw(tx, owner, tx.Sender, pid, amount, true)
}

func (v *Vault) withdraw(tx *ledger.Tx, owner, to types.Address, pid uint64, amount sdkmath.Int, delegated bool) (*StakeResult, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	vs, err := v.loadState(tx)
	if err != nil {
		return nil, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return nil, err
	}
	if err := checkPid(pools, pid); err != nil {
		return nil, err
	}
	if !pools[pid].Withdrawable {
		return nil, types.ErrPoolDisabled
	}
	if delegated {
		allowance, err := tx.PoolAllowance(pid, owner, to)
		if err != nil {
			return nil, err
		}
		if allowance.LT(amount) {
			return nil, types.ErrInsufficientAllowance
		}
		if err := tx.SetPoolAllowance(pid, owner, to, allowance.Sub(amount)); err != nil {
			return nil, err
		}
	}
	info, err := tx.UserInfo(pid, owner)
	if err != nil {
		return nil, err
	}
	if info.Amount.LT(amount) {
		return nil, types.ErrInsufficientStake
	}

	if pools, _, err = v.massUpdate(tx, &vs, pools); err != nil {
		return nil, err
	}
	pool := pools[pid]
	books, err := v.loadBooks(tx, vs, pools)
	if err != nil {
		return nil, err
	}
	s := Settle(info, pool.AccRewardPerShare, amount.Neg(), &books)
	pool.TotalStaked = pool.TotalStaked.Sub(amount)
	vs.AccountedRewards = books.AccountedRewards
	if err := v.persistStake(tx, vs, pool, owner, s.Info); err != nil {
		return nil, err
	}

	if _, err := tx.Bank.Transfer(pool.StakeToken, v.Address, to, amount); err != nil {
		return nil, fmt.Errorf("%w: stake: %w", types.ErrExternalTransferFailed, err)
	}
	if err := v.payReward(tx, vs.RewardToken, owner, s.Paid); err != nil {
		return nil, err
	}
	return &StakeResult{Pid: pid, Owner: owner, Amount: amount, Staked: s.Info.Amount, RewardPaid: s.Paid}, nil
}

// EmergencyWithdraw returns the sender's whole stake without settling. The forfeited reward goes
// back to the pending balance for the remaining stakers.
func (v *Vault) EmergencyWithdraw(tx *ledger.Tx, pid uint64) (*StakeResult, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return nil, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return nil, err
	}
	if err := checkPid(pools, pid); err != nil {
		return nil, err
	}
	pool := pools[pid]
	if !pool.Withdrawable {
		return nil, types.ErrPoolDisabled
	}
	info, err := tx.UserInfo(pid, tx.Sender)
	if err != nil {
		return nil, err
	}

	amount := info.Amount
	forfeited := Pending(info, pool.AccRewardPerShare)
	vs.AccountedRewards = vs.AccountedRewards.Sub(forfeited)
	if vs.AccountedRewards.IsNegative() {
		vs.AccountedRewards = sdkmath.ZeroInt()
	}
	pool.TotalStaked = pool.TotalStaked.Sub(amount)
	if err := v.persistStake(tx, vs, pool, tx.Sender, types.NewUserInfo()); err != nil {
		return nil, err
	}

	if _, err := tx.Bank.Transfer(pool.StakeToken, v.Address, tx.Sender, amount); err != nil {
		return nil, fmt.Errorf("%w: stake: %w", types.ErrExternalTransferFailed, err)
	}
	v.log.Warn().Uint64("pid", pid).Str("user", tx.Sender.String()).Str("forfeited", forfeited.String()).Msg("Emergency withdraw")
	return &StakeResult{Pid: pid, Owner: tx.Sender, Amount: amount, Staked: sdkmath.ZeroInt(), RewardPaid: sdkmath.ZeroInt()}, nil
}

// SetAllowanceForPoolToken replaces what delegate may withdraw from the sender's stake in pid.
func (v *Vault) SetAllowanceForPoolToken(tx *ledger.Tx, delegate types.Address, pid uint64, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	n, err := tx.PoolCount()
	if err != nil {
		return err
	}
	if pid >= n {
		return fmt.Errorf("%w: %d", types.ErrUnknownPool, pid)
	}
	return tx.SetPoolAllowance(pid, tx.Sender, delegate, amount)
}

func (v *Vault) persistStake(tx *ledger.Tx, vs types.VaultState, pool types.Pool, user types.Address, info types.UserInfo) error {
	if err := tx.PutPool(pool); err != nil {
		return err
	}
	if err := tx.PutUserInfo(pool.ID, user, info); err != nil {
		return err
	}
	if err := tx.SetVaultState(vs); err != nil {
		return err
	}
	staked := pool.TotalStaked
	tx.AfterCommit(func() {
		metrics.VaultPoolStaked.WithLabelValues(strconv.FormatUint(pool.ID, 10), pool.StakeToken).Set(utils.MetricValue(staked))
	})
	return nil
}

func (v *Vault) payReward(tx *ledger.Tx, rewardToken string, to types.Address, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return nil
	}
	if _, err := tx.Bank.Transfer(rewardToken, v.Address, to, amount); err != nil {
		return fmt.Errorf("%w: reward: %w", types.ErrExternalTransferFailed, err)
	}
	tx.AfterCommit(func() {
		metrics.VaultRewardsPaid.Add(utils.MetricValue(amount))
	})
	return nil
}
