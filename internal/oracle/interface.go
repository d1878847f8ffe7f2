package oracle

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/reservevault/internal/types"
)

// Ledger defines the fungible-asset ledger the vault reads balances from.
// Implementations may be the live chain (bank + cw20 queries) or the
// in-process host.
type Ledger interface {
	// Balance returns the amount of asset held by account.
	Balance(ctx context.Context, account string, asset types.Asset) (sdkmath.Int, error)
}

// YieldMarket defines the read side of the external yield-market protocol.
type YieldMarket interface {
	// ExchangeRate returns the stable value of one receipt at height.
	ExchangeRate(ctx context.Context, height int64) (sdkmath.LegacyDec, error)
}
