package state

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
)

// ErrNotFound is returned for singleton records and pools that have not been written yet.
var ErrNotFound = errors.New("record not found")

// Store is a durable, transactional ledger store.
type Store interface {
	// Begin opens a transaction. Nothing written through it is visible until Commit.
	Begin(ctx context.Context) (Tx, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Tx is the full read/write surface of one ledger transaction. Missing balances, stakes,
// allowances and contributions read as zero values.
type Tx interface {
	Commit() error
	Rollback() error

	Head() (types.Head, error)
	SetHead(head types.Head) error

	// Bank
	Balance(denom string, addr types.Address) (sdkmath.Int, error)
	SetBalance(denom string, addr types.Address, amount sdkmath.Int) error
	Supply(denom string) (sdkmath.Int, error)
	SetSupply(denom string, amount sdkmath.Int) error
	TokenAllowance(denom string, owner, spender types.Address) (sdkmath.Int, error)
	SetTokenAllowance(denom string, owner, spender types.Address, amount sdkmath.Int) error
	FeeRule(denom string) (types.FeeRule, error)
	SetFeeRule(rule types.FeeRule) error

	// Reward vault
	VaultState() (types.VaultState, error)
	SetVaultState(vs types.VaultState) error
	PoolCount() (uint64, error)
	Pool(pid uint64) (types.Pool, error)
	PutPool(pool types.Pool) error
	UserInfo(pid uint64, addr types.Address) (types.UserInfo, error)
	PutUserInfo(pid uint64, addr types.Address, info types.UserInfo) error
	PoolAllowance(pid uint64, owner, delegate types.Address) (sdkmath.Int, error)
	SetPoolAllowance(pid uint64, owner, delegate types.Address, amount sdkmath.Int) error

	// Liquidity generation event
	LGEState() (types.LGEState, error)
	SetLGEState(ls types.LGEState) error
	Contribution(addr types.Address) (types.Contribution, error)
	PutContribution(addr types.Address, c types.Contribution) error

	// Receipts
	AppendReceipt(r types.Receipt) error
	RecentReceipts(limit int) ([]types.Receipt, error)
}
