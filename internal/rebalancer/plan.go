/*

This file contains the pure rebalance decision. Given the liquid stable
balance, the receipt balance, the target reserve and the exchange rate it
always produces the same plan.

*/

package rebalancer

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/reservevault/internal/convert"
	"github.com/elys-network/reservevault/internal/types"
)

// Direction is the kind of movement a plan performs.
type Direction string

const (
	DirectionNone    Direction = "NONE"
	DirectionDeposit Direction = "DEPOSIT"
	DirectionRedeem  Direction = "REDEEM"
)

// Inputs holds everything a rebalance decision depends on. ReceiptBalance
// and ExchangeRate are only consulted when the stable balance is below
// Target.
type Inputs struct {
	StableBalance  sdkmath.Int
	ReceiptBalance sdkmath.Int
	Target         sdkmath.Int
	ExchangeRate   sdkmath.LegacyDec
}

// Plan is the outcome of a rebalance decision.
type Plan struct {
	Direction Direction `json:"direction"`

	DepositStable sdkmath.Int `json:"deposit_stable"` // surplus sent to the market
	RedeemStable  sdkmath.Int `json:"redeem_stable"`  // deficit to recover

	RequiredReceipts sdkmath.Int `json:"required_receipts"` // receipts needed to cover the deficit
	RedeemReceipts   sdkmath.Int `json:"redeem_receipts"`   // receipts actually redeemed, after clamping
	Clamped          bool        `json:"clamped"`
}

// Decide computes the minimal plan that moves the stable balance to Target.
func Decide(in Inputs) (Plan, error) {
	plan := Plan{
		Direction:        DirectionNone,
		DepositStable:    sdkmath.ZeroInt(),
		RedeemStable:     sdkmath.ZeroInt(),
		RequiredReceipts: sdkmath.ZeroInt(),
		RedeemReceipts:   sdkmath.ZeroInt(),
	}
	if in.StableBalance.IsNil() || in.StableBalance.IsNegative() {
		return plan, errorsmod.Wrap(types.ErrInvalidAmount, "stable balance must be non-negative")
	}
	if in.Target.IsNil() || in.Target.IsNegative() {
		return plan, errorsmod.Wrap(types.ErrInvalidAmount, "reserved target must be non-negative")
	}

	switch {
	case in.StableBalance.GT(in.Target):
		surplus, err := in.StableBalance.SafeSub(in.Target)
		if err != nil {
			return plan, errorsmod.Wrap(types.ErrOverflow, err.Error())
		}
		plan.Direction = DirectionDeposit
		plan.DepositStable = surplus

	case in.StableBalance.LT(in.Target):
		deficit, err := in.Target.SafeSub(in.StableBalance)
		if err != nil {
			return plan, errorsmod.Wrap(types.ErrOverflow, err.Error())
		}
		if in.ReceiptBalance.IsNil() || in.ReceiptBalance.IsNegative() {
			return plan, errorsmod.Wrap(types.ErrInvalidAmount, "receipt balance must be non-negative")
		}
		required, err := convert.StableToReceipt(deficit, in.ExchangeRate)
		if err != nil {
			return plan, err
		}
		plan.RedeemStable = deficit
		plan.RequiredReceipts = required
		plan.RedeemReceipts = required
		if in.ReceiptBalance.LT(required) {
			plan.RedeemReceipts = in.ReceiptBalance
			plan.Clamped = true
		}
		if !plan.RedeemReceipts.IsZero() {
			plan.Direction = DirectionRedeem
		}
	}
	return plan, nil
}

// Instructions renders the plan into at most one yield-market instruction.
func (p Plan) Instructions(cfg types.VaultConfig) []types.Instruction {
	switch p.Direction {
	case DirectionDeposit:
		return []types.Instruction{
			types.NewYieldDeposit(cfg.YieldMarketAddress, sdk.NewCoin(cfg.StableDenom, p.DepositStable)),
		}
	case DirectionRedeem:
		return []types.Instruction{
			types.NewReceiptRedeem(cfg.ReceiptAssetAddress, cfg.YieldMarketAddress, p.RedeemReceipts),
		}
	default:
		return nil
	}
}
