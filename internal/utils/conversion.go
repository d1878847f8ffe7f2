/*
This file contains common utility functions for converting amounts between
base units (as stored on chain) and display units, and for parsing amounts
supplied through configuration or the CLI.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling.
// Only used for reporting; never feed the result back into accounting.
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}
	decAmount, err := ToDisplay(amount, precision)
	if err != nil {
		return 0, err
	}

	resultFloat, err := decAmount.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}
	return resultFloat, nil
}

// ToDisplay shifts a base-unit amount right by precision decimal places.
func ToDisplay(amount sdkmath.Int, precision int) (sdkmath.LegacyDec, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if amount.IsNil() {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	return sdkmath.LegacyNewDecFromInt(amount).Quo(precisionFactor(precision)), nil
}

// FormatAmount renders a base-unit amount in display units, e.g. 1500000 with
// precision 6 becomes "1.500000".
func FormatAmount(amount sdkmath.Int, precision int) string {
	d, err := ToDisplay(amount, precision)
	if err != nil {
		return amount.String()
	}
	s := d.String()
	// LegacyDec always prints 18 decimals.
	if dot := strings.IndexByte(s, '.'); dot >= 0 && precision < sdkmath.LegacyPrecision {
		if precision == 0 {
			return s[:dot]
		}
		return s[:dot+1+precision]
	}
	return s
}

// ParseAmount parses a non-negative base-unit integer.
func ParseAmount(s string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(strings.TrimSpace(s))
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q is not an integer", ErrConversionFailed, s)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount, nil
}

// ParseDisplayAmount parses a decimal display amount ("12.5") into base units,
// truncating anything finer than precision.
func ParseDisplayAmount(s string, precision int) (sdkmath.Int, error) {
	if err := checkPrecision(precision); err != nil {
		return sdkmath.ZeroInt(), err
	}
	dec, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}
	if dec.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return dec.Mul(precisionFactor(precision)).TruncateInt(), nil
}

func checkPrecision(precision int) error {
	if precision < 0 || precision > 18 {
		return fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	return nil
}

func precisionFactor(precision int) sdkmath.LegacyDec {
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}
	return factor
}
