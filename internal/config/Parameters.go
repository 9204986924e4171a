/*

This file contains the default protocol parameters applied at genesis.

They reproduce the launch configuration of the token: a 1% transfer fee routed to the reward vault,
a 7.24% dev skim, a one week liquidity generation event with a day of drain grace, and a governance
timelock of roughly two weeks of blocks before the super admin may act.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
)

// Parameters are the protocol settings written into the ledger at genesis.
type Parameters struct {
	RewardToken   string // Fee-on-transfer token the vault distributes
	NativeDenom   string // Currency contributors pay into the event
	TokenDecimals int32

	TransferFeeX100 uint64 // Per mille of every non-exempt transfer sent to the vault
	DevFeeBps       uint64
	DrainPolicy     types.DrainPolicy

	// GovernanceGraceBlocks must pass after vault initialization before the super admin may act.
	GovernanceGraceBlocks uint64

	TokenAllotment sdkmath.Int // Token minted to the event and paired with the contributions
	LGEDuration    time.Duration
	LGEDrainGrace  time.Duration

	LPPoolAllocPoint uint64 // Weight of the event's LP token pool, added to the vault at genesis
}

// DefaultParameters is the launch configuration.
var DefaultParameters = Parameters{
	RewardToken:   "magic",
	NativeDenom:   "native",
	TokenDecimals: 18,

	TransferFeeX100: 10, // 1%
	DevFeeBps:       724,
	DrainPolicy:     types.DrainSequential,

	GovernanceGraceBlocks: 95000,

	TokenAllotment: sdkmath.NewInt(10000).Mul(sdkmath.NewIntWithDecimal(1, 18)),
	LGEDuration:    7 * 24 * time.Hour,
	LGEDrainGrace:  24 * time.Hour,

	LPPoolAllocPoint: 100,
}
