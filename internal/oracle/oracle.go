/*

This file contains the balance oracle adapter. Every read goes straight to
the ledger or the yield market: there is no caching and no retry, and a failed
read aborts the calling operation.

*/

package oracle

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/reservevault/internal/convert"
	"github.com/elys-network/reservevault/internal/types"
)

// Oracle reads the vault's stable and receipt balances and the current
// exchange rate.
type Oracle struct {
	ledger Ledger
	market YieldMarket
	cfg    types.VaultConfig
}

// New binds an oracle to the ledger, the market and the assets named in cfg.
func New(ledger Ledger, market YieldMarket, cfg types.VaultConfig) *Oracle {
	return &Oracle{ledger: ledger, market: market, cfg: cfg}
}

// StableBalance returns the stable units held by account.
func (o *Oracle) StableBalance(ctx context.Context, account string) (sdkmath.Int, error) {
	return o.balance(ctx, account, o.cfg.StableAsset())
}

// ReceiptBalance returns the receipt units held by account.
func (o *Oracle) ReceiptBalance(ctx context.Context, account string) (sdkmath.Int, error) {
	return o.balance(ctx, account, o.cfg.ReceiptAsset())
}

// ExchangeRate queries the market at height.
func (o *Oracle) ExchangeRate(ctx context.Context, height int64) (sdkmath.LegacyDec, error) {
	rate, err := o.market.ExchangeRate(ctx, height)
	if err != nil {
		return sdkmath.LegacyDec{}, errorsmod.Wrapf(types.ErrExchangeRateQuery, "market %s at height %d: %s", o.cfg.YieldMarketAddress, height, err)
	}
	if rate.IsNil() || !rate.IsPositive() {
		return sdkmath.LegacyDec{}, errorsmod.Wrapf(types.ErrInvalidExchangeRate, "market %s reported %v", o.cfg.YieldMarketAddress, rate)
	}
	return rate, nil
}

// TotalValueLocked returns the stable balance of account plus its receipt
// balance valued at the exchange rate for height.
func (o *Oracle) TotalValueLocked(ctx context.Context, account string, height int64) (*types.TotalValueLockedResponse, error) {
	stable, err := o.StableBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	receipt, err := o.ReceiptBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	rate, err := o.ExchangeRate(ctx, height)
	if err != nil {
		return nil, err
	}
	value, err := convert.ReceiptToStable(receipt, rate)
	if err != nil {
		return nil, err
	}
	tvl, err := stable.SafeAdd(value)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrOverflow, err.Error())
	}
	return &types.TotalValueLockedResponse{
		TVL:            tvl,
		StableBalance:  stable,
		ReceiptBalance: receipt,
		ReceiptValue:   value,
		ExchangeRate:   rate,
		Height:         height,
	}, nil
}

func (o *Oracle) balance(ctx context.Context, account string, asset types.Asset) (sdkmath.Int, error) {
	amount, err := o.ledger.Balance(ctx, account, asset)
	if err != nil {
		return sdkmath.ZeroInt(), errorsmod.Wrapf(types.ErrBalanceQuery, "%s of %s: %s", asset, account, err)
	}
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), errorsmod.Wrapf(types.ErrBalanceQuery, "%s of %s: ledger reported %v", asset, account, amount)
	}
	return amount, nil
}
