/*

Reference constant-product pair. Only the liquidity-minting side is implemented: the first deposit
mints sqrt(token * native) units minus a permanently locked minimum, later deposits mint in
proportion to the smaller reserve ratio. Swaps and pricing curves are not part of this service.

*/

package amm

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/bank"
	"github.com/elys-network/lgevault/internal/types"
)

// MinimumLiquidity is locked at the zero address on the first mint.
var MinimumLiquidity = sdkmath.NewInt(1000)

// ErrInsufficientLiquidityMinted is returned when a deposit would mint no LP units.
var ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")

// Pair pools one token against the native currency.
type Pair struct {
	TokenDenom  string
	NativeDenom string
	Address     types.Address
}

// NewPair derives the pair's account from its denoms.
func NewPair(tokenDenom, nativeDenom string) *Pair {
	return &Pair{
		TokenDenom:  tokenDenom,
		NativeDenom: nativeDenom,
		Address:     types.ModuleAddress("pair/" + tokenDenom + "/" + nativeDenom),
	}
}

// LPDenom is the denom of the pair's liquidity units.
func (p *Pair) LPDenom() string {
	return "lp/" + p.TokenDenom + "-" + p.NativeDenom
}

// Reserves returns the pair's held token and native balances.
func (p *Pair) Reserves(b *bank.Bank) (token, native sdkmath.Int, err error) {
	if token, err = b.BalanceOf(p.TokenDenom, p.Address); err != nil {
		return
	}
	native, err = b.BalanceOf(p.NativeDenom, p.Address)
	return
}

// CreateLiquidityPosition moves both amounts from provider into the pair and mints LP units to
// provider. Fee-on-transfer tokens are measured by what actually arrived.
func (p *Pair) CreateLiquidityPosition(b *bank.Bank, provider types.Address, tokenAmount, nativeAmount sdkmath.Int) (sdkmath.Int, error) {
	reserveToken, reserveNative, err := p.Reserves(b)
	if err != nil {
		return sdkmath.Int{}, err
	}
	supply, err := b.SupplyOf(p.LPDenom())
	if err != nil {
		return sdkmath.Int{}, err
	}

	if _, err := b.Transfer(p.TokenDenom, provider, p.Address, tokenAmount); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pair token deposit: %w", err)
	}
	if _, err := b.Transfer(p.NativeDenom, provider, p.Address, nativeAmount); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pair native deposit: %w", err)
	}
	balanceToken, balanceNative, err := p.Reserves(b)
	if err != nil {
		return sdkmath.Int{}, err
	}

	liquidity := MintedLiquidity(
		balanceToken.Sub(reserveToken), balanceNative.Sub(reserveNative),
		reserveToken, reserveNative, supply,
	)
	if !liquidity.IsPositive() {
		return sdkmath.Int{}, ErrInsufficientLiquidityMinted
	}
	if supply.IsZero() {
		if err := b.Mint(p.LPDenom(), types.ZeroAddress, MinimumLiquidity); err != nil {
			return sdkmath.Int{}, err
		}
	}
	if err := b.Mint(p.LPDenom(), provider, liquidity); err != nil {
		return sdkmath.Int{}, err
	}
	return liquidity, nil
}

// PairedTokenBalanceOf is holder's LP balance.
func (p *Pair) PairedTokenBalanceOf(b *bank.Bank, holder types.Address) (sdkmath.Int, error) {
	return b.BalanceOf(p.LPDenom(), holder)
}

// MintedLiquidity computes the LP units for a deposit of (token, native) on top of the given
// reserves and LP supply. The result may be zero or negative for dust deposits.
func MintedLiquidity(token, native, reserveToken, reserveNative, supply sdkmath.Int) sdkmath.Int {
	if supply.IsZero() {
		root := new(big.Int).Sqrt(token.Mul(native).BigInt())
		return sdkmath.NewIntFromBigInt(root).Sub(MinimumLiquidity)
	}
	if reserveToken.IsZero() || reserveNative.IsZero() {
		return sdkmath.ZeroInt()
	}
	byToken := token.Mul(supply).Quo(reserveToken)
	byNative := native.Mul(supply).Quo(reserveNative)
	return sdkmath.MinInt(byToken, byNative)
}
