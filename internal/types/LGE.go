/*

Liquidity generation event records.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// LGEPhase is the externally visible state of the event.
type LGEPhase string

const (
	PhaseOpen             LGEPhase = "open"
	PhaseClosed           LGEPhase = "closed"
	PhaseLiquidityCreated LGEPhase = "liquidity_created"
	PhaseDrained          LGEPhase = "drained"
)

// LGEState is the scalar state of the event.
type LGEState struct {
	Admin               Address     `json:"admin"`
	Token               string      `json:"token"`        // Primary token paired against the native currency
	NativeDenom         string      `json:"native_denom"` // Denom contributors pay in
	TokenAllotment      sdkmath.Int `json:"token_allotment"`
	StartTimestamp      int64       `json:"start_timestamp"`
	EndTimestamp        int64       `json:"end_timestamp"`
	DrainGraceSeconds   int64       `json:"drain_grace_seconds"`
	TotalContributed    sdkmath.Int `json:"total_contributed"`
	LiquidityAdded      bool        `json:"liquidity_added"`
	TotalLPTokensMinted sdkmath.Int `json:"total_lp_tokens_minted"`
	Drained             bool        `json:"drained"`
}

// Phase derives the event phase at ledger time now.
func (s LGEState) Phase(now int64) LGEPhase {
	switch {
	case s.Drained:
		return PhaseDrained
	case s.LiquidityAdded:
		return PhaseLiquidityCreated
	case now < s.EndTimestamp:
		return PhaseOpen
	default:
		return PhaseClosed
	}
}

// Contribution is one address's record in the event.
type Contribution struct {
	Amount  sdkmath.Int `json:"amount"`  // Cumulative native currency contributed, never zeroed
	Claimed bool        `json:"claimed"` // Set once the LP share has been paid out
}

// NewContribution returns an empty contribution record.
func NewContribution() Contribution {
	return Contribution{Amount: sdkmath.ZeroInt()}
}
