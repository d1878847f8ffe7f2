package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestSDKIntToFloat64(t *testing.T) {
	v, err := SDKIntToFloat64(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	require.InDelta(t, 1.5, v, 1e-12)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = SDKIntToFloat64(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = SDKIntToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.500000", FormatAmount(sdkmath.NewInt(1_500_000), 6))
	require.Equal(t, "0.000001", FormatAmount(sdkmath.NewInt(1), 6))
	require.Equal(t, "42", FormatAmount(sdkmath.NewInt(42), 0))
}

func TestParseAmount(t *testing.T) {
	amt, err := ParseAmount(" 100 ")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), amt)

	_, err = ParseAmount("1.5")
	require.ErrorIs(t, err, ErrConversionFailed)

	_, err = ParseAmount("-3")
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestParseDisplayAmount(t *testing.T) {
	amt, err := ParseDisplayAmount("12.5", 6)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(12_500_000), amt)

	amt, err = ParseDisplayAmount("0.0000019", 6)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1), amt)

	_, err = ParseDisplayAmount("abc", 6)
	require.ErrorIs(t, err, ErrConversionFailed)

	_, err = ParseDisplayAmount("-1", 6)
	require.ErrorIs(t, err, ErrAmountNegative)
}
