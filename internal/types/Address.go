/*

Addresses identify accounts on the ledger. They use the familiar 20 byte hex form so that
wallets and front-ends can display them unchanged.

*/

package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"golang.org/x/crypto/sha3"
)

const addressHexLen = 40

// Address is a lowercase, 0x-prefixed, 20 byte hex account identifier.
type Address string

// ZeroAddress receives the permanently locked minimum liquidity of a pair.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalises a hex address.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(trimmed) != addressHexLen || !govalidator.IsHexadecimal(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address("0x" + strings.ToLower(trimmed)), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// ModuleAddress derives the account of a built-in module (vault, lge, pair) from its name,
// the last 20 bytes of keccak256(name).
func ModuleAddress(name string) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	sum := h.Sum(nil)
	return Address("0x" + hex.EncodeToString(sum[len(sum)-20:]))
}

func (a Address) String() string { return string(a) }

// IsZero reports whether a is unset or the zero address.
func (a Address) IsZero() bool { return a == "" || a == ZeroAddress }
