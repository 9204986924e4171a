package vault

import (
	"errors"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/utils"
	"github.com/rs/zerolog"
)

// Vault is the multi-pool reward vault. It holds no state of its own; every method reads and
// writes through the ledger transaction it is given.
type Vault struct {
	Address types.Address
	log     zerolog.Logger
}

// New returns the vault bound to its module account.
func New() *Vault {
	return &Vault{
		Address: types.ModuleAddress("vault"),
		log:     logger.GetForComponent("vault"),
	}
}

// Config is the genesis configuration of the vault.
type Config struct {
	RewardToken           string
	DevAddress            types.Address
	SuperAdmin            types.Address
	DevFeeBps             uint64
	DrainPolicy           types.DrainPolicy // Empty means sequential
	GovernanceGraceBlocks uint64
}

// Initialize creates the vault with the sender as admin.
func (v *Vault) Initialize(tx *ledger.Tx, cfg Config) (*types.VaultState, error) {
	if _, err := tx.VaultState(); err == nil {
		return nil, types.ErrAlreadyInitialized
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	if cfg.RewardToken == "" {
		return nil, fmt.Errorf("%w: reward token is required", types.ErrInvalidAmount)
	}
	if cfg.DevFeeBps > MaxDevFeeBps {
		return nil, types.ErrDevFeeTooHigh
	}
	policy := cfg.DrainPolicy
	if policy == "" {
		policy = types.DrainSequential
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: unknown drain policy %q", types.ErrInvalidAmount, policy)
	}

	vs := types.VaultState{
		Admin:                 tx.Sender,
		SuperAdmin:            cfg.SuperAdmin,
		DevAddress:            cfg.DevAddress,
		RewardToken:           cfg.RewardToken,
		DevFeeBps:             cfg.DevFeeBps,
		AccountedRewards:      sdkmath.ZeroInt(),
		DrainPolicy:           policy,
		InitializedBlock:      tx.Block,
		GovernanceGraceBlocks: cfg.GovernanceGraceBlocks,
		CumulativeRewards:     sdkmath.ZeroInt(),
		DevRewardsPaid:        sdkmath.ZeroInt(),
	}
	if err := tx.SetVaultState(vs); err != nil {
		return nil, err
	}
	v.log.Info().
		Str("admin", vs.Admin.String()).
		Str("reward_token", vs.RewardToken).
		Uint64("dev_fee_bps", vs.DevFeeBps).
		Str("drain_policy", string(vs.DrainPolicy)).
		Msg("Reward vault initialized")
	return &vs, nil
}

func (v *Vault) loadState(tx *ledger.Tx) (types.VaultState, error) {
	vs, err := tx.VaultState()
	if errors.Is(err, state.ErrNotFound) {
		return vs, types.ErrNotInitialized
	}
	return vs, err
}

func (v *Vault) loadPools(tx *ledger.Tx) ([]types.Pool, error) {
	n, err := tx.PoolCount()
	if err != nil {
		return nil, err
	}
	pools := make([]types.Pool, 0, n)
	for pid := uint64(0); pid < n; pid++ {
		pool, err := tx.Pool(pid)
		if err != nil {
			return nil, fmt.Errorf("failed to load pool %d: %w", pid, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func checkPid(pools []types.Pool, pid uint64) error {
	if pid >= uint64(len(pools)) {
		return fmt.Errorf("%w: %d", types.ErrUnknownPool, pid)
	}
	return nil
}

func (v *Vault) loadBooks(tx *ledger.Tx, vs types.VaultState, pools []types.Pool) (Books, error) {
	balance, err := tx.Bank.BalanceOf(vs.RewardToken, v.Address)
	if err != nil {
		return Books{}, err
	}
	staked := sdkmath.ZeroInt()
	for _, p := range pools {
		if p.StakeToken == vs.RewardToken {
			staked = staked.Add(p.TotalStaked)
		}
	}
	return Books{RewardBalance: balance, AccountedRewards: vs.AccountedRewards, StakedReward: staked}, nil
}

func paramsOf(vs types.VaultState) Params {
	return Params{TotalAllocPoint: vs.TotalAllocPoint, DevFeeBps: vs.DevFeeBps, Policy: vs.DrainPolicy}
}

func requireAdmin(vs types.VaultState, sender types.Address) error {
	if sender != vs.Admin {
		return types.ErrNotOwner
	}
	return nil
}

// UpdateResult summarises the reward folded by an update.
type UpdateResult struct {
	PoolsUpdated int         `json:"pools_updated"`
	Distributed  sdkmath.Int `json:"distributed"`
	DevCut       sdkmath.Int `json:"dev_cut"`
}

// commitUpdates persists the pool records and totals of a computed update, then pays the dev cut.
func (v *Vault) commitUpdates(tx *ledger.Tx, vs *types.VaultState, books Books, updates []PoolUpdate) (*UpdateResult, error) {
	res := &UpdateResult{Distributed: sdkmath.ZeroInt(), DevCut: sdkmath.ZeroInt()}
	for _, u := range updates {
		if !u.Changed {
			continue
		}
		res.PoolsUpdated++
		res.Distributed = res.Distributed.Add(u.Distributed)
		res.DevCut = res.DevCut.Add(u.DevCut)
		if err := tx.PutPool(u.Pool); err != nil {
			return nil, err
		}
	}
	vs.AccountedRewards = books.AccountedRewards
	vs.CumulativeRewards = vs.CumulativeRewards.Add(res.Distributed).Add(res.DevCut)
	vs.DevRewardsPaid = vs.DevRewardsPaid.Add(res.DevCut)
	if err := tx.SetVaultState(*vs); err != nil {
		return nil, err
	}

	if res.DevCut.IsPositive() {
		if _, err := tx.Bank.Transfer(vs.RewardToken, v.Address, vs.DevAddress, res.DevCut); err != nil {
			return nil, fmt.Errorf("%w: dev fee: %w", types.ErrExternalTransferFailed, err)
		}
	}
	distributed, devCut := res.Distributed, res.DevCut
	tx.AfterCommit(func() {
		metrics.VaultRewardsDistributed.Add(utils.MetricValue(distributed))
		metrics.VaultDevFeesPaid.Add(utils.MetricValue(devCut))
	})
	return res, nil
}

// massUpdate brings every pool current and returns the updated pool list.
func (v *Vault) massUpdate(tx *ledger.Tx, vs *types.VaultState, pools []types.Pool) ([]types.Pool, *UpdateResult, error) {
	books, err := v.loadBooks(tx, *vs, pools)
	if err != nil {
		return nil, nil, err
	}
	updates := MassUpdate(pools, paramsOf(*vs), tx.Block, &books)
	res, err := v.commitUpdates(tx, vs, books, updates)
	if err != nil {
		return nil, nil, err
	}
	updated := make([]types.Pool, len(updates))
	for i, u := range updates {
		updated[i] = u.Pool
	}
	return updated, res, nil
}

// MassUpdatePools brings every pool current in ascending id order under the configured drain policy.
func (v *Vault) MassUpdatePools(tx *ledger.Tx) (*UpdateResult, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return nil, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return nil, err
	}
	_, res, err := v.massUpdate(tx, &vs, pools)
	return res, err
}

// UpdatePool brings a single pool current against the whole pending balance.
func (v *Vault) UpdatePool(tx *ledger.Tx, pid uint64) (*UpdateResult, error) {
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
	books, err := v.loadBooks(tx, vs, pools)
	if err != nil {
		return nil, err
	}
	u := UpdatePool(pools[pid], books.PendingRewards(), paramsOf(vs), tx.Block, &books)
	return v.commitUpdates(tx, &vs, books, []PoolUpdate{u})
}

// Add appends a pool for stakeToken. Admin only.
func (v *Vault) Add(tx *ledger.Tx, allocPoint uint64, stakeToken string, withUpdate, withdrawable bool) (*types.Pool, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return nil, err
	}
	pools, err := v.loadPools(tx)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		if p.StakeToken == stakeToken {
			return nil, fmt.Errorf("%w: %s is pool %d", types.ErrPoolExists, stakeToken, p.ID)
		}
	}
	if withUpdate {
		if _, _, err := v.massUpdate(tx, &vs, pools); err != nil {
			return nil, err
		}
	}

	pool := types.Pool{
		ID:                uint64(len(pools)),
		StakeToken:        stakeToken,
		AllocPoint:        allocPoint,
		LastRewardBlock:   tx.Block,
		AccRewardPerShare: sdkmath.ZeroInt(),
		Withdrawable:      withdrawable,
		TotalStaked:       sdkmath.ZeroInt(),
	}
	if err := tx.PutPool(pool); err != nil {
		return nil, err
	}
	vs.TotalAllocPoint += allocPoint
	if err := tx.SetVaultState(vs); err != nil {
		return nil, err
	}
	tx.AfterCommit(func() {
		metrics.VaultPoolStaked.WithLabelValues(strconv.FormatUint(pool.ID, 10), pool.StakeToken).Set(0)
	})
	v.log.Info().Uint64("pid", pool.ID).Str("stake_token", stakeToken).Uint64("alloc_point", allocPoint).Msg("Pool added")
	return &pool, nil
}

// SetPoolWithdrawable toggles the withdrawal gate of a pool. Admin only.
func (v *Vault) SetPoolWithdrawable(tx *ledger.Tx, pid uint64, withdrawable bool) error {
	vs, err := v.loadState(tx)
	if err != nil {
		return err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return err
	}
	pool, err := tx.Pool(pid)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("%w: %d", types.ErrUnknownPool, pid)
	}
	if err != nil {
		return err
	}
	pool.Withdrawable = withdrawable
	return tx.PutPool(pool)
}

// SetDevFee sets the dev skim in basis points, at most 10%. Admin only.
func (v *Vault) SetDevFee(tx *ledger.Tx, bps uint64) error {
	vs, err := v.loadState(tx)
	if err != nil {
		return err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return err
	}
	if bps > MaxDevFeeBps {
		return types.ErrDevFeeTooHigh
	}
	vs.DevFeeBps = bps
	return tx.SetVaultState(vs)
}

// SetDevFeeReceiver changes where the dev skim goes. Admin only.
func (v *Vault) SetDevFeeReceiver(tx *ledger.Tx, dev types.Address) error {
	vs, err := v.loadState(tx)
	if err != nil {
		return err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return err
	}
	vs.DevAddress = dev
	return tx.SetVaultState(vs)
}

// SetDrainPolicy switches how mass updates split pending rewards. Admin only.
func (v *Vault) SetDrainPolicy(tx *ledger.Tx, policy types.DrainPolicy) error {
	vs, err := v.loadState(tx)
	if err != nil {
		return err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return err
	}
	if !policy.Valid() {
		return fmt.Errorf("%w: unknown drain policy %q", types.ErrInvalidAmount, policy)
	}
	vs.DrainPolicy = policy
	return tx.SetVaultState(vs)
}

// TransferOwnership hands the admin role to newAdmin. Admin only.
func (v *Vault) TransferOwnership(tx *ledger.Tx, newAdmin types.Address) error {
	vs, err := v.loadState(tx)
	if err != nil {
		return err
	}
	if err := requireAdmin(vs, tx.Sender); err != nil {
		return err
	}
	v.log.Warn().Str("from", vs.Admin.String()).Str("to", newAdmin.String()).Msg("Vault ownership transferred")
	vs.Admin = newAdmin
	return tx.SetVaultState(vs)
}
