/*

Every rejection the ledger can produce carries a stable tag. Callers (and the HTTP API) match on
the tag, never on the message text.

*/

package types

import "errors"

// LedgerError is a tagged rejection that aborts a ledger transaction.
type LedgerError struct {
	Tag string
	Msg string
}

func (e *LedgerError) Error() string {
	return e.Tag + ": " + e.Msg
}

func newLedgerError(tag, msg string) *LedgerError {
	return &LedgerError{Tag: tag, Msg: msg}
}

var (
	// Liquidity generation event
	ErrEventOver             = newLedgerError("EventOver", "liquidity generation event over")
	ErrEventOngoing          = newLedgerError("EventOngoing", "liquidity generation event still ongoing")
	ErrNoAgreement           = newLedgerError("NoAgreement", "no agreement provided")
	ErrNothingToClaim        = newLedgerError("NothingToClaim", "nothing to claim, move along")
	ErrLiquidityAlreadyAdded = newLedgerError("LiquidityAlreadyAdded", "liquidity generation already finished")
	ErrLiquidityNotAdded     = newLedgerError("LiquidityNotAdded", "liquidity has not been created yet")
	ErrNoContributions       = newLedgerError("NoContributions", "nothing was contributed to pair")
	ErrGracePeriodOngoing    = newLedgerError("GracePeriodOngoing", "liquidity generation grace period still ongoing")
	ErrEventDrained          = newLedgerError("EventDrained", "liquidity generation event was drained")

	// Reward vault
	ErrPoolDisabled          = newLedgerError("PoolDisabled", "withdrawing from this pool is disabled")
	ErrInsufficientStake     = newLedgerError("InsufficientStake", "withdraw amount exceeds stake")
	ErrInsufficientAllowance = newLedgerError("InsufficientAllowance", "withdraw: insufficient allowance")
	ErrUnknownPool           = newLedgerError("UnknownPool", "pool does not exist")
	ErrPoolExists            = newLedgerError("PoolExists", "a pool for this token already exists")
	ErrDevFeeTooHigh         = newLedgerError("DevFeeTooHigh", "dev fee clamped at 10%")

	// Access control
	ErrNotOwner                     = newLedgerError("NotOwner", "caller is not the owner")
	ErrNotSuperAdmin                = newLedgerError("NotSuperAdmin", "caller is not super admin")
	ErrGovernanceGracePeriodNotOver = newLedgerError("GovernanceGracePeriodNotOver", "governance setup grace period not over")

	// Ledger plumbing
	ErrExternalTransferFailed = newLedgerError("ExternalTransferFailed", "external transfer failed")
	ErrInsufficientBalance    = newLedgerError("InsufficientBalance", "transfer amount exceeds balance")
	ErrInvalidAmount          = newLedgerError("InvalidAmount", "amount must be a non-negative integer")
	ErrInvalidAddress         = newLedgerError("InvalidAddress", "malformed address")
	ErrNotInitialized         = newLedgerError("NotInitialized", "module has not been initialized")
	ErrAlreadyInitialized     = newLedgerError("AlreadyInitialized", "module is already initialized")
)

// Tag returns the ledger tag of err, or "" when err is not a ledger rejection.
func Tag(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Tag
	}
	return ""
}
