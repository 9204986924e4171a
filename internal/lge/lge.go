/*

The liquidity generation event collects native currency during a fixed window, pairs the whole
pot with a pre-minted token allotment in one liquidity creation, and lets every contributor claim
LP units in proportion to what they put in. An admin-only drain recovers the balances if the
liquidity creation never happens.

*/

package lge

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/bank"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/utils"
	"github.com/rs/zerolog"
)

const (
	// DefaultDuration is the length of the contribution window.
	DefaultDuration = 7 * 24 * time.Hour
	// DefaultDrainGrace is how long after the window the admin must wait before draining.
	DefaultDrainGrace = 24 * time.Hour
)

// LiquidityProvider is the AMM pair the event seeds.
type LiquidityProvider interface {
	CreateLiquidityPosition(b *bank.Bank, provider types.Address, tokenAmount, nativeAmount sdkmath.Int) (sdkmath.Int, error)
	PairedTokenBalanceOf(b *bank.Bank, holder types.Address) (sdkmath.Int, error)
	LPDenom() string
}

// LGE runs the liquidity generation event. Like the vault it keeps no state of its own.
type LGE struct {
	Address types.Address
	pair    LiquidityProvider
	log     zerolog.Logger
}

// New returns the event bound to its module account, seeding pair.
func New(pair LiquidityProvider) *LGE {
	return &LGE{
		Address: types.ModuleAddress("lge"),
		pair:    pair,
		log:     logger.GetForComponent("lge"),
	}
}

// Config is the genesis configuration of the event.
type Config struct {
	Token          string
	NativeDenom    string
	TokenAllotment sdkmath.Int   // Minted to the event account at initialization
	Duration       time.Duration // Zero means DefaultDuration
	DrainGrace     time.Duration // Zero means DefaultDrainGrace
}

// Initialize opens the contribution window at the current ledger time with the sender as admin.
func (l *LGE) Initialize(tx *ledger.Tx, cfg Config) (*types.LGEState, error) {
	if _, err := tx.LGEState(); err == nil {
		return nil, types.ErrAlreadyInitialized
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}
	if cfg.Token == "" || cfg.NativeDenom == "" || cfg.Token == cfg.NativeDenom {
		return nil, fmt.Errorf("%w: token and native denoms must be set and distinct", types.ErrInvalidAmount)
	}
	if cfg.TokenAllotment.IsNil() || !cfg.TokenAllotment.IsPositive() {
		return nil, fmt.Errorf("%w: token allotment must be positive", types.ErrInvalidAmount)
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = DefaultDrainGrace
	}

	ls := types.LGEState{
		Admin:               tx.Sender,
		Token:               cfg.Token,
		NativeDenom:         cfg.NativeDenom,
		TokenAllotment:      cfg.TokenAllotment,
		StartTimestamp:      tx.Time,
		EndTimestamp:        tx.Time + int64(cfg.Duration/time.Second),
		DrainGraceSeconds:   int64(cfg.DrainGrace / time.Second),
		TotalContributed:    sdkmath.ZeroInt(),
		TotalLPTokensMinted: sdkmath.ZeroInt(),
	}
	if err := tx.SetLGEState(ls); err != nil {
		return nil, err
	}
	if err := tx.Bank.Mint(ls.Token, l.Address, ls.TokenAllotment); err != nil {
		return nil, err
	}
	l.log.Info().
		Str("admin", ls.Admin.String()).
		Str("token", ls.Token).
		Str("allotment", ls.TokenAllotment.String()).
		Time("ends", time.Unix(ls.EndTimestamp, 0)).
		Msg("Liquidity generation event opened")
	return &ls, nil
}

func (l *LGE) loadState(tx *ledger.Tx) (types.LGEState, error) {
	ls, err := tx.LGEState()
	if errors.Is(err, state.ErrNotFound) {
		return ls, types.ErrNotInitialized
	}
	return ls, err
}

// ContributeResult is recorded in the receipt of a contribution.
type ContributeResult struct {
	Contributor      types.Address `json:"contributor"`
	Amount           sdkmath.Int   `json:"amount"`
	Contributed      sdkmath.Int   `json:"contributed"` // Contributor's running total
	TotalContributed sdkmath.Int   `json:"total_contributed"`
}

// Contribute adds the native currency attached to tx to the sender's contribution. The window
// closes at EndTimestamp; agreement must be given.
func (l *LGE) Contribute(tx *ledger.Tx, agreement bool) (*ContributeResult, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return nil, err
	}
	if tx.Time >= ls.EndTimestamp || ls.LiquidityAdded || ls.Drained {
		return nil, types.ErrEventOver
	}
	if !agreement {
		return nil, types.ErrNoAgreement
	}
	c, err := tx.Contribution(tx.Sender)
	if err != nil {
		return nil, err
	}
	res := &ContributeResult{Contributor: tx.Sender, Amount: tx.Value, Contributed: c.Amount, TotalContributed: ls.TotalContributed}
	if tx.Value.IsZero() {
		return res, nil
	}

	c.Amount = c.Amount.Add(tx.Value)
	ls.TotalContributed = ls.TotalContributed.Add(tx.Value)
	if err := tx.PutContribution(tx.Sender, c); err != nil {
		return nil, err
	}
	if err := tx.SetLGEState(ls); err != nil {
		return nil, err
	}

	received, err := tx.Bank.Transfer(ls.NativeDenom, tx.Sender, l.Address, tx.Value)
	if err != nil {
		return nil, err
	}
	if !received.Equal(tx.Value) {
		return nil, fmt.Errorf("%w: sent %s, event received %s", types.ErrExternalTransferFailed, tx.Value, received)
	}
	total := ls.TotalContributed
	tx.AfterCommit(func() {
		metrics.LGETotalContributed.Set(utils.MetricValue(total))
	})
	res.Contributed, res.TotalContributed = c.Amount, ls.TotalContributed
	return res, nil
}

// LiquidityResult is recorded in the receipt of the liquidity creation.
type LiquidityResult struct {
	TokenAmount  sdkmath.Int `json:"token_amount"`
	NativeAmount sdkmath.Int `json:"native_amount"`
	LPMinted     sdkmath.Int `json:"lp_minted"`
}

// CreateLiquidity pairs the event's entire native and token balances in the AMM. Anyone may call
// it once the window has closed; it succeeds once.
func (l *LGE) CreateLiquidity(tx *ledger.Tx) (*LiquidityResult, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return nil, err
	}
	if tx.Time < ls.EndTimestamp {
		return nil, types.ErrEventOngoing
	}
	if ls.LiquidityAdded {
		return nil, types.ErrLiquidityAlreadyAdded
	}
	if ls.Drained {
		return nil, types.ErrEventDrained
	}
	if !ls.TotalContributed.IsPositive() {
		return nil, types.ErrNoContributions
	}
	nativeAmount, err := tx.Bank.BalanceOf(ls.NativeDenom, l.Address)
	if err != nil {
		return nil, err
	}
	tokenAmount, err := tx.Bank.BalanceOf(ls.Token, l.Address)
	if err != nil {
		return nil, err
	}
	before, err := l.pair.PairedTokenBalanceOf(tx.Bank, l.Address)
	if err != nil {
		return nil, err
	}

	ls.LiquidityAdded = true
	if err := tx.SetLGEState(ls); err != nil {
		return nil, err
	}
	minted, err := l.pair.CreateLiquidityPosition(tx.Bank, l.Address, tokenAmount, nativeAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: create liquidity: %w", types.ErrExternalTransferFailed, err)
	}
	after, err := l.pair.PairedTokenBalanceOf(tx.Bank, l.Address)
	if err != nil {
		return nil, err
	}
	if !after.Sub(before).Equal(minted) {
		return nil, fmt.Errorf("%w: pair reported %s LP, event holds %s more", types.ErrExternalTransferFailed, minted, after.Sub(before))
	}

	ls.TotalLPTokensMinted = minted
	if err := tx.SetLGEState(ls); err != nil {
		return nil, err
	}
	l.log.Info().
		Str("token", tokenAmount.String()).
		Str("native", nativeAmount.String()).
		Str("lp_minted", minted.String()).
		Msg("Liquidity created")
	return &LiquidityResult{TokenAmount: tokenAmount, NativeAmount: nativeAmount, LPMinted: minted}, nil
}

// Share is contributed * totalLP / totalContributed, rounded down.
func Share(contributed, totalLP, totalContributed sdkmath.Int) sdkmath.Int {
	if !totalContributed.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return contributed.Mul(totalLP).Quo(totalContributed)
}

// ClaimResult is recorded in the receipt of an LP claim.
type ClaimResult struct {
	Claimant types.Address `json:"claimant"`
	LPDenom  string        `json:"lp_denom"`
	Amount   sdkmath.Int   `json:"amount"`
}

// ClaimLPTokens pays the sender their share of the minted LP units. Each address claims once.
func (l *LGE) ClaimLPTokens(tx *ledger.Tx) (*ClaimResult, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return nil, err
	}
	if !ls.LiquidityAdded {
		return nil, types.ErrLiquidityNotAdded
	}
	c, err := tx.Contribution(tx.Sender)
	if err != nil {
		return nil, err
	}
	if c.Claimed {
		return nil, types.ErrNothingToClaim
	}
	share := Share(c.Amount, ls.TotalLPTokensMinted, ls.TotalContributed)
	if !share.IsPositive() {
		return nil, types.ErrNothingToClaim
	}

	c.Claimed = true
	if err := tx.PutContribution(tx.Sender, c); err != nil {
		return nil, err
	}
	if _, err := tx.Bank.Transfer(l.pair.LPDenom(), l.Address, tx.Sender, share); err != nil {
		return nil, fmt.Errorf("%w: lp claim: %w", types.ErrExternalTransferFailed, err)
	}
	tx.AfterCommit(metrics.LGEClaimsTotal.Inc)
	return &ClaimResult{Claimant: tx.Sender, LPDenom: l.pair.LPDenom(), Amount: share}, nil
}

// DrainResult is recorded in the receipt of an emergency drain.
type DrainResult struct {
	To           types.Address `json:"to"`
	NativeAmount sdkmath.Int   `json:"native_amount"`
	TokenAmount  sdkmath.Int   `json:"token_amount"`
}

// EmergencyDrain24hAfterLiquidityGenerationEventIsDone sweeps the event's native and token
// balances to the admin once the drain grace period after the window has passed. Contribution
// records are left as they are.
func (l *LGE) EmergencyDrain24hAfterLiquidityGenerationEventIsDone(tx *ledger.Tx) (*DrainResult, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return nil, err
	}
	if tx.Sender != ls.Admin {
		return nil, types.ErrNotOwner
	}
	if tx.Time < ls.EndTimestamp+ls.DrainGraceSeconds {
		return nil, types.ErrGracePeriodOngoing
	}
	nativeAmount, err := tx.Bank.BalanceOf(ls.NativeDenom, l.Address)
	if err != nil {
		return nil, err
	}
	tokenAmount, err := tx.Bank.BalanceOf(ls.Token, l.Address)
	if err != nil {
		return nil, err
	}

	ls.Drained = true
	if err := tx.SetLGEState(ls); err != nil {
		return nil, err
	}
	if _, err := tx.Bank.Transfer(ls.NativeDenom, l.Address, ls.Admin, nativeAmount); err != nil {
		return nil, fmt.Errorf("%w: drain native: %w", types.ErrExternalTransferFailed, err)
	}
	if _, err := tx.Bank.Transfer(ls.Token, l.Address, ls.Admin, tokenAmount); err != nil {
		return nil, fmt.Errorf("%w: drain token: %w", types.ErrExternalTransferFailed, err)
	}
	l.log.Warn().
		Str("admin", ls.Admin.String()).
		Str("native", nativeAmount.String()).
		Str("token", tokenAmount.String()).
		Msg("Liquidity generation event drained")
	return &DrainResult{To: ls.Admin, NativeAmount: nativeAmount, TokenAmount: tokenAmount}, nil
}
