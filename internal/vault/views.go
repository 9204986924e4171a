package vault

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
)

// State returns the vault-wide parameters and totals.
func (v *Vault) State(tx *ledger.Tx) (types.VaultState, error) {
	return v.loadState(tx)
}

// PendingRewards is the held reward balance not yet folded into any pool.
func (v *Vault) PendingRewards(tx *ledger.Tx) (sdkmath.Int, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	books, err := v.loadBooks(tx, vs, pools)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return books.PendingRewards(), nil
}

// PendingMagic is what user would be paid by a harvest in tx's block: the mass update that block
// would run is projected with the configured drain policy and dev cut, nothing is written. Like the
// harvest itself it never exceeds what the vault can pay.
func (v *Vault) PendingMagic(tx *ledger.Tx, pid uint64, user types.Address) (sdkmath.Int, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := checkPid(pools, pid); err != nil {
		return sdkmath.Int{}, err
	}
	books, err := v.loadBooks(tx, vs, pools)
	if err != nil {
		return sdkmath.Int{}, err
	}
	updates := MassUpdate(pools, paramsOf(vs), tx.Block, &books)

	info, err := tx.UserInfo(pid, user)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return sdkmath.MinInt(Pending(info, updates[pid].Pool.AccRewardPerShare), books.Payable()), nil
}

// PoolLength is the number of pools ever added.
func (v *Vault) PoolLength(tx *ledger.Tx) (uint64, error) {
	return tx.PoolCount()
}

// PoolInfo returns one pool record.
func (v *Vault) PoolInfo(tx *ledger.Tx, pid uint64) (types.Pool, error) {
	pool, err := tx.Pool(pid)
	if errors.Is(err, state.ErrNotFound) {
		return pool, fmt.Errorf("%w: %d", types.ErrUnknownPool, pid)
	}
	return pool, err
}

// Pools returns every pool in id order.
func (v *Vault) Pools(tx *ledger.Tx) ([]types.Pool, error) {
	return v.loadPools(tx)
}

// UserInfo returns user's stake record in pid.
func (v *Vault) UserInfo(tx *ledger.Tx, pid uint64, user types.Address) (types.UserInfo, error) {
	return tx.UserInfo(pid, user)
}

// Allowance is what delegate may still withdraw from owner's stake in pid.
func (v *Vault) Allowance(tx *ledger.Tx, pid uint64, owner, delegate types.Address) (sdkmath.Int, error) {
	return tx.PoolAllowance(pid, owner, delegate)
}
