/*

This file converts between the stable unit and the receipt unit using the
exchange rate reported by the yield market (stable units per one receipt).

Stable -> receipt is used for liquidity sizing and never under-allocates.
Receipt -> stable is used for valuation and always floors.

*/

package convert

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/reservevault/internal/types"
)

// RoundingErrCompensation is added to a stable amount before it is divided by
// the exchange rate.
var RoundingErrCompensation = sdkmath.OneInt()

// StableToReceipt returns the number of receipts to redeem to obtain at least
// stable units at rate.
func StableToReceipt(stable sdkmath.Int, rate sdkmath.LegacyDec) (receipt sdkmath.Int, err error) {
	if err := validate(stable, rate); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer recoverOverflow(&err)

	padded, err := stable.SafeAdd(RoundingErrCompensation)
	if err != nil {
		return sdkmath.ZeroInt(), errorsmod.Wrap(types.ErrOverflow, err.Error())
	}
	receipt = sdkmath.LegacyNewDecFromInt(padded).Quo(rate).TruncateInt()

	// The floor can still land one receipt short when a receipt is worth
	// more than the compensation constant.
	back, err := ReceiptToStable(receipt, rate)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if back.LT(stable) {
		receipt, err = receipt.SafeAdd(sdkmath.OneInt())
		if err != nil {
			return sdkmath.ZeroInt(), errorsmod.Wrap(types.ErrOverflow, err.Error())
		}
	}
	return receipt, nil
}

// ReceiptToStable values receipt units in stable units at rate, flooring.
func ReceiptToStable(receipt sdkmath.Int, rate sdkmath.LegacyDec) (stable sdkmath.Int, err error) {
	if err := validate(receipt, rate); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer recoverOverflow(&err)

	return sdkmath.LegacyNewDecFromInt(receipt).MulTruncate(rate).TruncateInt(), nil
}

func validate(amount sdkmath.Int, rate sdkmath.LegacyDec) error {
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "amount must be non-negative, got %v", amount)
	}
	if rate.IsNil() || !rate.IsPositive() {
		return errorsmod.Wrapf(types.ErrInvalidExchangeRate, "rate must be positive, got %v", rate)
	}
	return nil
}

// sdkmath panics when a decimal leaves its supported range.
func recoverOverflow(err *error) {
	if r := recover(); r != nil {
		*err = errorsmod.Wrap(types.ErrOverflow, fmt.Sprint(r))
	}
}
