package lge

import (
	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/types"
)

// Status is the public snapshot of the event.
type Status struct {
	Phase               types.LGEPhase `json:"phase"`
	Admin               types.Address  `json:"admin"`
	Token               string         `json:"token"`
	NativeDenom         string         `json:"native_denom"`
	LPDenom             string         `json:"lp_denom"`
	TokenAllotment      sdkmath.Int    `json:"token_allotment"`
	StartTimestamp      int64          `json:"start_timestamp"`
	EndTimestamp        int64          `json:"end_timestamp"`
	DrainOpensAt        int64          `json:"drain_opens_at"`
	SecondsLeft         int64          `json:"seconds_left"`
	TotalContributed    sdkmath.Int    `json:"total_contributed"`
	TotalLPTokensMinted sdkmath.Int    `json:"total_lp_tokens_minted"`
	NativeBalance       sdkmath.Int    `json:"native_balance"`
	TokenBalance        sdkmath.Int    `json:"token_balance"`
	LPBalance           sdkmath.Int    `json:"lp_balance"`
}

// Status reports the event phase and balances at tx's time.
func (l *LGE) Status(tx *ledger.Tx) (*Status, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return nil, err
	}
	s := &Status{
		Phase:               ls.Phase(tx.Time),
		Admin:               ls.Admin,
		Token:               ls.Token,
		NativeDenom:         ls.NativeDenom,
		LPDenom:             l.pair.LPDenom(),
		TokenAllotment:      ls.TokenAllotment,
		StartTimestamp:      ls.StartTimestamp,
		EndTimestamp:        ls.EndTimestamp,
		DrainOpensAt:        ls.EndTimestamp + ls.DrainGraceSeconds,
		TotalContributed:    ls.TotalContributed,
		TotalLPTokensMinted: ls.TotalLPTokensMinted,
	}
	if left := ls.EndTimestamp - tx.Time; left > 0 {
		s.SecondsLeft = left
	}
	if s.NativeBalance, err = tx.Bank.BalanceOf(ls.NativeDenom, l.Address); err != nil {
		return nil, err
	}
	if s.TokenBalance, err = tx.Bank.BalanceOf(ls.Token, l.Address); err != nil {
		return nil, err
	}
	if s.LPBalance, err = l.pair.PairedTokenBalanceOf(tx.Bank, l.Address); err != nil {
		return nil, err
	}
	return s, nil
}

// Contribution returns addr's record.
func (l *LGE) Contribution(tx *ledger.Tx, addr types.Address) (types.Contribution, error) {
	if _, err := l.loadState(tx); err != nil {
		return types.Contribution{}, err
	}
	return tx.Contribution(addr)
}

// ClaimableLP is what addr would receive from ClaimLPTokens now; zero before liquidity exists
// and after the claim.
func (l *LGE) ClaimableLP(tx *ledger.Tx, addr types.Address) (sdkmath.Int, error) {
	ls, err := l.loadState(tx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	c, err := tx.Contribution(addr)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !ls.LiquidityAdded || c.Claimed {
		return sdkmath.ZeroInt(), nil
	}
	return Share(c.Amount, ls.TotalLPTokensMinted, ls.TotalContributed), nil
}
