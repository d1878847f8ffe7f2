package chain

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"google.golang.org/grpc"
)

// MarketClient queries a deployed money market for its exchange rate.
type MarketClient struct {
	wasm    wasmtypes.QueryClient
	address string
}

// NewMarketClient creates a market reader for the contract at address.
func NewMarketClient(conn grpc.ClientConnInterface, address string) *MarketClient {
	return &MarketClient{wasm: wasmtypes.NewQueryClient(conn), address: address}
}

// ExchangeRate returns stable units per receipt as reported by the market's
// epoch state at height. The query itself is also pinned to height.
func (c *MarketClient) ExchangeRate(ctx context.Context, height int64) (sdkmath.LegacyDec, error) {
	query, err := encodeEpochStateQuery(height)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	qctx, err := atHeight(ctx, height)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	resp, err := c.wasm.SmartContractState(qctx, &wasmtypes.QuerySmartContractStateRequest{
		Address:   c.address,
		QueryData: query,
	})
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("failed to query epoch state of %s: %w", c.address, err)
	}
	if resp == nil {
		return sdkmath.LegacyDec{}, ErrEmptyResponse
	}
	return decodeEpochState(resp.Data)
}
