/*
This file contains common utility functions for converting ledger amounts between base-unit
integers, human-readable decimal strings and floats for metrics.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// MaxPrecision is the largest number of decimals a denom may use.
const MaxPrecision = 18

// ParseAmount parses a non-negative base-unit integer such as "1000000".
func ParseAmount(s string) (sdkmath.Int, error) {
	s = strings.TrimSpace(s)
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q is not an integer", ErrConversionFailed, s)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount, nil
}

// FormatUnits renders a base-unit amount as a decimal string with the given precision,
// e.g. 1500000000000000000 at 18 decimals is "1.5".
func FormatUnits(amount sdkmath.Int, precision int32) (string, error) {
	if precision < 0 || precision > MaxPrecision {
		return "", fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	if amount.IsNil() {
		return "", ErrAmountNil
	}
	return decimal.NewFromBigInt(amount.BigInt(), -precision).String(), nil
}

// ParseUnits converts a decimal string such as "1.5" into base units. Digits beyond precision
// are truncated.
func ParseUnits(s string, precision int32) (sdkmath.Int, error) {
	if precision < 0 || precision > MaxPrecision {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if d.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return sdkmath.NewIntFromBigInt(d.Shift(precision).BigInt()), nil
}

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int32) (float64, error) {
	if precision < 0 || precision > MaxPrecision {
		return 0, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	resultFloat := decimal.NewFromBigInt(amount.BigInt(), -precision).InexactFloat64()
	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}
	return resultFloat, nil
}

// MetricValue is SDKIntToFloat64 at zero precision for counters and gauges, 0 on any error.
func MetricValue(amount sdkmath.Int) float64 {
	f, err := SDKIntToFloat64(amount, 0)
	if err != nil {
		return 0
	}
	return f
}
