package chain

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/types"
)

// LedgerClient reads native balances from the bank module and cw20 balances
// through wasm smart queries.
type LedgerClient struct {
	bank   banktypes.QueryClient
	wasm   wasmtypes.QueryClient
	logger zerolog.Logger
}

// NewLedgerClient creates a ledger reader on conn.
func NewLedgerClient(conn grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{
		bank:   banktypes.NewQueryClient(conn),
		wasm:   wasmtypes.NewQueryClient(conn),
		logger: logger.GetForComponent("chain"),
	}
}

// Balance returns the amount of asset held by account at the latest height.
func (c *LedgerClient) Balance(ctx context.Context, account string, asset types.Asset) (sdkmath.Int, error) {
	switch asset.Kind {
	case types.AssetNative:
		return c.nativeBalance(ctx, account, asset.ID)
	case types.AssetCW20:
		return c.cw20Balance(ctx, account, asset.ID)
	default:
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset.Kind)
	}
}

func (c *LedgerClient) nativeBalance(ctx context.Context, account, denom string) (sdkmath.Int, error) {
	resp, err := c.bank.Balance(ctx, &banktypes.QueryBalanceRequest{Address: account, Denom: denom})
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to query %s balance of %s: %w", denom, account, err)
	}
	if resp == nil || resp.Balance == nil {
		return sdkmath.ZeroInt(), nil
	}
	c.logger.Debug().Str("account", account).Str("balance", resp.Balance.String()).Msg("Bank balance")
	return resp.Balance.Amount, nil
}

func (c *LedgerClient) cw20Balance(ctx context.Context, account, token string) (sdkmath.Int, error) {
	query, err := encodeCW20BalanceQuery(account)
	if err != nil {
		return sdkmath.Int{}, err
	}
	resp, err := c.wasm.SmartContractState(ctx, &wasmtypes.QuerySmartContractStateRequest{
		Address:   token,
		QueryData: query,
	})
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to query cw20 %s balance of %s: %w", token, account, err)
	}
	if resp == nil {
		return sdkmath.Int{}, ErrEmptyResponse
	}
	amount, err := decodeCW20Balance(resp.Data)
	if err != nil {
		return sdkmath.Int{}, err
	}
	c.logger.Debug().Str("account", account).Str("token", token).Str("balance", amount.String()).Msg("cw20 balance")
	return amount, nil
}
