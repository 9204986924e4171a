/*

Ledger-level records: the chain head, token movement journal, fee rules and transaction receipts.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Head is the latest committed block.
type Head struct {
	Height uint64 `json:"height"`
	Time   int64  `json:"time"` // Unix seconds
}

// Transfer is one token movement recorded while a transaction executes.
type Transfer struct {
	Denom  string      `json:"denom"`
	From   Address     `json:"from"`
	To     Address     `json:"to"`
	Amount sdkmath.Int `json:"amount"`
	Fee    sdkmath.Int `json:"fee,omitempty"` // Skimmed to the fee distributor, already excluded from Amount
}

// Allocation is a balance minted by the genesis block.
type Allocation struct {
	Denom   string      `json:"denom"`
	Address Address     `json:"address"`
	Amount  sdkmath.Int `json:"amount"`
}

// FeeRule makes a denom fee-on-transfer: FeePercentX100/1000 of every non-exempt transfer is
// delivered to Distributor instead of the recipient.
type FeeRule struct {
	Denom          string    `json:"denom"`
	FeePercentX100 uint64    `json:"fee_percent_x100"` // 10 means 1%
	Distributor    Address   `json:"distributor"`
	Exempt         []Address `json:"exempt"`
}

// IsExempt reports whether transfers touching addr skip the fee.
func (r FeeRule) IsExempt(addr Address) bool {
	for _, e := range r.Exempt {
		if e == addr {
			return true
		}
	}
	return false
}

// Receipt is the outcome of one ledger transaction.
type Receipt struct {
	ID        string      `json:"id"`
	Height    uint64      `json:"height"`
	Time      int64       `json:"time"`
	Op        string      `json:"op"`
	Sender    Address     `json:"sender"`
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"` // Ledger tag when Success is false
	Transfers []Transfer  `json:"transfers,omitempty"`
	Result    interface{} `json:"result,omitempty"`
}
