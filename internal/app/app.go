package app

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/amm"
	"github.com/elys-network/lgevault/internal/config"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/lge"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/vault"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// KeeperAddress signs the periodic pool updates run by RunKeeper.
var KeeperAddress = types.ModuleAddress("keeper")

// App wires the ledger to the vault, the event and the pair they share.
type App struct {
	logger zerolog.Logger
	params config.Parameters

	Ledger *ledger.Ledger
	Vault  *vault.Vault
	LGE    *lge.LGE
	Pair   *amm.Pair

	// Runtime state
	cycleCount int
}

// Config holds everything needed to build an App.
type Config struct {
	Store  state.Store
	Clock  clockwork.Clock // Nil means the real clock
	Params config.Parameters
}

// Genesis names the accounts written into the ledger by the first block.
type Genesis struct {
	Admin      types.Address
	Dev        types.Address
	SuperAdmin types.Address
	Balances   []types.Allocation // Minted before the vault and the event start
}

// New creates an App over cfg.Store.
func New(cfg Config) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("app configuration validation failed: %w", err)
	}
	pair := amm.NewPair(cfg.Params.RewardToken, cfg.Params.NativeDenom)
	a := &App{
		logger: logger.GetForComponent("app"),
		params: cfg.Params,
		Ledger: ledger.New(cfg.Store, cfg.Clock),
		Vault:  vault.New(),
		LGE:    lge.New(pair),
		Pair:   pair,
	}
	a.logger.Info().
		Str("reward_token", cfg.Params.RewardToken).
		Str("native_denom", cfg.Params.NativeDenom).
		Str("lp_denom", pair.LPDenom()).
		Msg("App created")
	return a, nil
}

func validateConfig(cfg Config) error {
	if cfg.Store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	p := cfg.Params
	if p.RewardToken == "" || p.NativeDenom == "" {
		return fmt.Errorf("reward token and native denom cannot be empty")
	}
	if p.DevFeeBps > vault.MaxDevFeeBps {
		return fmt.Errorf("dev fee %d bps exceeds %d", p.DevFeeBps, vault.MaxDevFeeBps)
	}
	if !p.DrainPolicy.Valid() {
		return fmt.Errorf("unknown drain policy %q", p.DrainPolicy)
	}
	if p.TokenAllotment.IsNil() || !p.TokenAllotment.IsPositive() {
		return fmt.Errorf("token allotment must be positive")
	}
	return nil
}

// Params returns the protocol parameters the app was built with.
func (a *App) Params() config.Parameters { return a.params }

// GenesisResult is recorded in the receipt of the genesis block.
type GenesisResult struct {
	Vault   *types.VaultState `json:"vault"`
	LGE     *types.LGEState   `json:"lge"`
	LPPool  *types.Pool       `json:"lp_pool"`
	FeeRule types.FeeRule     `json:"fee_rule"`

	Balances []types.Allocation `json:"balances,omitempty"`
}

// InitGenesis writes the first block: the reward token's transfer fee rule, the genesis balances,
// the vault, the event and the vault pool for the event's LP token. It does nothing on a ledger that already has a head.
func (a *App) InitGenesis(ctx context.Context, g Genesis) (bool, error) {
	head, err := a.Ledger.Head(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read ledger head: %w", err)
	}
	if head.Height > 0 {
		a.logger.Info().Uint64("height", head.Height).Msg("Ledger already initialized, skipping genesis")
		return false, nil
	}
	if g.Admin.IsZero() || g.Dev.IsZero() {
		return false, fmt.Errorf("genesis admin and dev addresses are required")
	}
	if err := a.validateAllocations(g.Balances); err != nil {
		return false, err
	}

	p := a.params
	_, err = a.Ledger.Execute(ctx, ledger.Call{Op: "genesis", Sender: g.Admin}, func(tx *ledger.Tx) (interface{}, error) {
		res := &GenesisResult{FeeRule: types.FeeRule{
			Denom:          p.RewardToken,
			FeePercentX100: p.TransferFeeX100,
			Distributor:    a.Vault.Address,
			Exempt:         []types.Address{a.Vault.Address, a.LGE.Address},
		}}
		if err := tx.Bank.SetFeeRule(res.FeeRule); err != nil {
			return nil, err
		}
		for _, alloc := range g.Balances {
			if err := tx.Bank.Mint(alloc.Denom, alloc.Address, alloc.Amount); err != nil {
				return nil, fmt.Errorf("failed to mint genesis balance of %s: %w", alloc.Address, err)
			}
		}
		res.Balances = g.Balances
		var err error
		if res.Vault, err = a.Vault.Initialize(tx, vault.Config{
			RewardToken:           p.RewardToken,
			DevAddress:            g.Dev,
			SuperAdmin:            g.SuperAdmin,
			DevFeeBps:             p.DevFeeBps,
			DrainPolicy:           p.DrainPolicy,
			GovernanceGraceBlocks: p.GovernanceGraceBlocks,
		}); err != nil {
			return nil, err
		}
		if res.LGE, err = a.LGE.Initialize(tx, lge.Config{
			Token:          p.RewardToken,
			NativeDenom:    p.NativeDenom,
			TokenAllotment: p.TokenAllotment,
			Duration:       p.LGEDuration,
			DrainGrace:     p.LGEDrainGrace,
		}); err != nil {
			return nil, err
		}
		if p.LPPoolAllocPoint > 0 {
			if res.LPPool, err = a.Vault.Add(tx, p.LPPoolAllocPoint, a.Pair.LPDenom(), false, true); err != nil {
				return nil, err
			}
		}
		return res, nil
	})
	if err != nil {
		return false, fmt.Errorf("genesis failed: %w", err)
	}
	a.logger.Info().
		Str("admin", g.Admin.String()).
		Str("dev", g.Dev.String()).
		Int("balances", len(g.Balances)).
		Msg("Genesis block committed")
	return true, nil
}

// validateAllocations rejects genesis balances the protocol accounts would misread: native in
// the event would pair without a contribution, LP units would have no pool behind them.
func (a *App) validateAllocations(balances []types.Allocation) error {
	for _, alloc := range balances {
		if alloc.Amount.IsNil() || !alloc.Amount.IsPositive() {
			return fmt.Errorf("genesis balance of %s %s must be positive", alloc.Address, alloc.Denom)
		}
		if alloc.Address.IsZero() {
			return fmt.Errorf("genesis balance of %s has no address", alloc.Denom)
		}
		switch alloc.Address {
		case a.Vault.Address, a.LGE.Address, a.Pair.Address, KeeperAddress:
			return fmt.Errorf("genesis balance cannot go to module account %s", alloc.Address)
		}
		if alloc.Denom == a.Pair.LPDenom() {
			return fmt.Errorf("genesis balances cannot mint %s", alloc.Denom)
		}
	}
	return nil
}

// RunKeeper brings every vault pool current once per interval until ctx is done. Any caller can
// do the same through massUpdatePools; the keeper only spares users the catch-up cost.
func (a *App) RunKeeper(ctx context.Context, interval time.Duration) error {
	a.logger.Info().
		Dur("interval", interval).
		Msg("Starting keeper loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Keeper loop stopped due to context cancellation")
			return nil
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

// RunCycle executes one keeper pool update.
func (a *App) RunCycle(ctx context.Context) {
	a.cycleCount++
	cycleStartTime := time.Now()

	// Generate unique cycle ID for tracing logs across the cycle
	cycleLogger := a.logger.With().Str("cycle_id", uuid.New().String()).Int("cycle", a.cycleCount).Logger()

	var result *vault.UpdateResult
	receipt, err := a.Ledger.Execute(ctx, ledger.Call{Op: "massUpdatePools", Sender: KeeperAddress}, func(tx *ledger.Tx) (interface{}, error) {
		var err error
		result, err = a.Vault.MassUpdatePools(tx)
		return result, err
	})
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Keeper cycle failed")
		return
	}
	distributed, devCut := sdkmath.ZeroInt(), sdkmath.ZeroInt()
	if result != nil {
		distributed, devCut = result.Distributed, result.DevCut
	}
	cycleLogger.Info().
		Uint64("block", receipt.Height).
		Str("distributed", distributed.String()).
		Str("dev_cut", devCut.String()).
		Dur("duration", time.Since(cycleStartTime)).
		Msg("Keeper cycle completed")
}
