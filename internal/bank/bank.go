/*

The bank is the token side of the ledger: multi-denom balances and supplies, spending allowances
and the optional fee-on-transfer rule that feeds the reward vault.

A Bank is bound to one ledger transaction. Everything it writes commits or rolls back with the
operation that used it, and every movement is journaled into that operation's receipt.

*/

package bank

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
)

// FeeDenominator scales FeeRule.FeePercentX100: 10 / 1000 is 1%.
const FeeDenominator = 1000

// Bank moves tokens inside one ledger transaction.
type Bank struct {
	tx      state.Tx
	journal []types.Transfer
}

// New binds a bank to tx.
func New(tx state.Tx) *Bank {
	return &Bank{tx: tx}
}

// Journal returns the transfers made so far, in order.
func (b *Bank) Journal() []types.Transfer {
	return b.journal
}

// BalanceOf returns the balance of addr in denom.
func (b *Bank) BalanceOf(denom string, addr types.Address) (sdkmath.Int, error) {
	return b.tx.Balance(denom, addr)
}

// SupplyOf returns the total minted supply of denom.
func (b *Bank) SupplyOf(denom string) (sdkmath.Int, error) {
	return b.tx.Supply(denom)
}

// Mint creates amount of denom and credits it to to.
func (b *Bank) Mint(denom string, to types.Address, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	supply, err := b.tx.Supply(denom)
	if err != nil {
		return err
	}
	if err := b.tx.SetSupply(denom, supply.Add(amount)); err != nil {
		return err
	}
	if err := b.credit(denom, to, amount); err != nil {
		return err
	}
	b.journal = append(b.journal, types.Transfer{Denom: denom, From: types.ZeroAddress, To: to, Amount: amount})
	return nil
}

// Transfer moves amount of denom from from to to and returns what to actually received. For a
// fee-on-transfer denom the fee is delivered to the rule's distributor unless either side is exempt.
func (b *Bank) Transfer(denom string, from, to types.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	if err := checkAmount(amount); err != nil {
		return sdkmath.Int{}, err
	}
	if amount.IsZero() {
		return amount, nil
	}
	if err := b.debit(denom, from, amount); err != nil {
		return sdkmath.Int{}, err
	}

	fee, err := b.feeFor(denom, from, to, amount)
	if err != nil {
		return sdkmath.Int{}, err
	}
	received := amount.Sub(fee.amount)
	if err := b.credit(denom, to, received); err != nil {
		return sdkmath.Int{}, err
	}
	if fee.amount.IsPositive() {
		if err := b.credit(denom, fee.distributor, fee.amount); err != nil {
			return sdkmath.Int{}, err
		}
	}

	record := types.Transfer{Denom: denom, From: from, To: to, Amount: received}
	if fee.amount.IsPositive() {
		record.Fee = fee.amount
	}
	b.journal = append(b.journal, record)
	return received, nil
}

// QuoteTransfer returns what to would receive and the fee skimmed if amount of denom moved from
// from to to now. It writes nothing.
func (b *Bank) QuoteTransfer(denom string, from, to types.Address, amount sdkmath.Int) (received, fee sdkmath.Int, err error) {
	if err := checkAmount(amount); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	charge, err := b.feeFor(denom, from, to, amount)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return amount.Sub(charge.amount), charge.amount, nil
}

// Approve sets (not increments) the amount of denom spender may move out of owner's balance.
func (b *Bank) Approve(denom string, owner, spender types.Address, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return b.tx.SetTokenAllowance(denom, owner, spender, amount)
}

// Allowance returns what spender may still move out of owner's denom balance.
func (b *Bank) Allowance(denom string, owner, spender types.Address) (sdkmath.Int, error) {
	return b.tx.TokenAllowance(denom, owner, spender)
}

// TransferFrom spends spender's allowance over from's balance.
func (b *Bank) TransferFrom(denom string, spender, from, to types.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	if err := checkAmount(amount); err != nil {
		return sdkmath.Int{}, err
	}
	allowance, err := b.tx.TokenAllowance(denom, from, spender)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if allowance.LT(amount) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s of %s approved for %s", types.ErrInsufficientAllowance, allowance, denom, spender)
	}
	if err := b.tx.SetTokenAllowance(denom, from, spender, allowance.Sub(amount)); err != nil {
		return sdkmath.Int{}, err
	}
	return b.Transfer(denom, from, to, amount)
}

// SetFeeRule installs or replaces the fee-on-transfer rule of a denom.
func (b *Bank) SetFeeRule(rule types.FeeRule) error {
	if rule.FeePercentX100 > FeeDenominator {
		return fmt.Errorf("%w: fee %d exceeds %d", types.ErrInvalidAmount, rule.FeePercentX100, FeeDenominator)
	}
	return b.tx.SetFeeRule(rule)
}

// FeeRule returns the rule of denom and whether one is installed.
func (b *Bank) FeeRule(denom string) (types.FeeRule, bool, error) {
	rule, err := b.tx.FeeRule(denom)
	if errors.Is(err, state.ErrNotFound) {
		return rule, false, nil
	}
	if err != nil {
		return rule, false, err
	}
	return rule, true, nil
}

type feeCharge struct {
	amount      sdkmath.Int
	distributor types.Address
}

func (b *Bank) feeFor(denom string, from, to types.Address, amount sdkmath.Int) (feeCharge, error) {
	none := feeCharge{amount: sdkmath.ZeroInt()}
	rule, found, err := b.FeeRule(denom)
	if err != nil || !found {
		return none, err
	}
	if rule.Distributor.IsZero() || rule.IsExempt(from) || rule.IsExempt(to) {
		return none, nil
	}
	return feeCharge{
		amount:      CalculateFee(amount, rule.FeePercentX100),
		distributor: rule.Distributor,
	}, nil
}

// CalculateFee is amount * feePercentX100 / 1000, rounded down.
func CalculateFee(amount sdkmath.Int, feePercentX100 uint64) sdkmath.Int {
	return amount.Mul(sdkmath.NewIntFromUint64(feePercentX100)).QuoRaw(FeeDenominator)
}

func (b *Bank) debit(denom string, addr types.Address, amount sdkmath.Int) error {
	bal, err := b.tx.Balance(denom, addr)
	if err != nil {
		return err
	}
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", types.ErrInsufficientBalance, addr, bal, denom, amount)
	}
	return b.tx.SetBalance(denom, addr, bal.Sub(amount))
}

func (b *Bank) credit(denom string, addr types.Address, amount sdkmath.Int) error {
	bal, err := b.tx.Balance(denom, addr)
	if err != nil {
		return err
	}
	return b.tx.SetBalance(denom, addr, bal.Add(amount))
}

func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount
	}
	return nil
}
