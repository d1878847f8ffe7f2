/*

This file contains the persistent vault configuration. It is created once at
instantiation and read at the start of every operation.

*/

package types

import (
	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
)

// VaultConfig is the singleton configuration stored in the host's config slot.
type VaultConfig struct {
	YieldMarketAddress    string      `json:"yield_market_addr"`  // money market accepting deposits and redemptions
	ReceiptAssetAddress   string      `json:"receipt_asset_addr"` // cw20 receipt token minted by the market
	StableDenom           string      `json:"stable_denom"`
	MinimumStableReserved sdkmath.Int `json:"minimum_stable_reserved"`
	Owner                 string      `json:"owner"`
}

// StableAsset returns the stable unit held as idle reserve.
func (c VaultConfig) StableAsset() Asset {
	return NativeAsset(c.StableDenom)
}

// ReceiptAsset returns the yield-bearing receipt unit.
func (c VaultConfig) ReceiptAsset() Asset {
	return CW20Asset(c.ReceiptAssetAddress)
}

// Validate checks addresses, denom and the minimum reserve.
func (c VaultConfig) Validate() error {
	for name, addr := range map[string]string{
		"yield market":  c.YieldMarketAddress,
		"receipt asset": c.ReceiptAssetAddress,
		"owner":         c.Owner,
	} {
		if err := ValidateAddress(addr); err != nil {
			return errorsmod.Wrapf(ErrInvalidConfig, "%s address: %s", name, err)
		}
	}
	if err := sdk.ValidateDenom(c.StableDenom); err != nil {
		return errorsmod.Wrapf(ErrInvalidConfig, "stable denom: %s", err)
	}
	if c.MinimumStableReserved.IsNil() || c.MinimumStableReserved.IsNegative() {
		return errorsmod.Wrap(ErrInvalidConfig, "minimum stable reserved must be non-negative")
	}
	return nil
}

// ValidateAddress accepts any well-formed bech32 account address regardless
// of its human readable prefix.
func ValidateAddress(addr string) error {
	if addr == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "empty address")
	}
	_, bz, err := bech32.DecodeAndConvert(addr)
	if err != nil {
		return err
	}
	return sdk.VerifyAddressFormat(bz)
}
