package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 9999999999999000 ")
	require.NoError(t, err)
	assert.Equal(t, "9999999999999000", v.String())

	_, err = ParseAmount("-1")
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = ParseAmount("1.5")
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestFormatAndParseUnits(t *testing.T) {
	amount, ok := sdkmath.NewIntFromString("1500000000000000000")
	require.True(t, ok)

	s, err := FormatUnits(amount, 18)
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)

	back, err := ParseUnits("1.5", 18)
	require.NoError(t, err)
	assert.True(t, back.Equal(amount))

	truncated, err := ParseUnits("0.123", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(12), truncated.Int64())

	_, err = FormatUnits(amount, 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = ParseUnits("-2", 6)
	assert.ErrorIs(t, err, ErrAmountNegative)
}

func TestSDKIntToFloat64(t *testing.T) {
	f, err := SDKIntToFloat64(sdkmath.NewInt(9276), 2)
	require.NoError(t, err)
	assert.InDelta(t, 92.76, f, 1e-9)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 0)
	assert.ErrorIs(t, err, ErrAmountNil)

	assert.Equal(t, float64(724), MetricValue(sdkmath.NewInt(724)))
	assert.Equal(t, float64(0), MetricValue(sdkmath.NewInt(-1)))
}
