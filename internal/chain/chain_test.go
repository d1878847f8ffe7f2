package chain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	grpctypes "github.com/cosmos/cosmos-sdk/types/grpc"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/elys-network/reservevault/internal/types"
)

type stubWasm struct {
	wasmtypes.QueryClient
	data     []byte
	err      error
	lastReq  *wasmtypes.QuerySmartContractStateRequest
	lastMeta metadata.MD
}

func (s *stubWasm) SmartContractState(ctx context.Context, in *wasmtypes.QuerySmartContractStateRequest, _ ...grpc.CallOption) (*wasmtypes.QuerySmartContractStateResponse, error) {
	s.lastReq = in
	s.lastMeta, _ = metadata.FromOutgoingContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &wasmtypes.QuerySmartContractStateResponse{Data: s.data}, nil
}

type stubBank struct {
	banktypes.QueryClient
	balance *sdk.Coin
}

func (s *stubBank) Balance(_ context.Context, in *banktypes.QueryBalanceRequest, _ ...grpc.CallOption) (*banktypes.QueryBalanceResponse, error) {
	if s.balance == nil {
		return &banktypes.QueryBalanceResponse{}, nil
	}
	coin := sdk.NewCoin(in.Denom, s.balance.Amount)
	return &banktypes.QueryBalanceResponse{Balance: &coin}, nil
}

type stubStatus struct {
	height int64
	err    error
}

func (s stubStatus) Status(context.Context) (*ctypes.ResultStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: s.height}}, nil
}

func TestEpochStateQueryEncoding(t *testing.T) {
	bz, err := encodeEpochStateQuery(1234)
	require.NoError(t, err)
	require.JSONEq(t, `{"epoch_state":{"block_height":1234}}`, string(bz))

	bz, err = encodeEpochStateQuery(0)
	require.NoError(t, err)
	require.JSONEq(t, `{"epoch_state":{}}`, string(bz))
}

func TestDecodeEpochState(t *testing.T) {
	rate, err := decodeEpochState([]byte(`{"exchange_rate":"1.250000000000000000","aterra_supply":"1000"}`))
	require.NoError(t, err)
	require.True(t, rate.Equal(sdkmath.LegacyMustNewDecFromStr("1.25")))

	_, err = decodeEpochState(nil)
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = decodeEpochState([]byte(`{"exchange_rate":"abc"}`))
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDecodeCW20Balance(t *testing.T) {
	amount, err := decodeCW20Balance([]byte(`{"balance":"5000"}`))
	require.NoError(t, err)
	require.Equal(t, "5000", amount.String())

	_, err = decodeCW20Balance([]byte(`{"balance":"-1"}`))
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = decodeCW20Balance([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestMarketClientPinsHeight(t *testing.T) {
	wasm := &stubWasm{data: []byte(`{"exchange_rate":"1.1","aterra_supply":"0"}`)}
	client := &MarketClient{wasm: wasm, address: "market"}

	rate, err := client.ExchangeRate(context.Background(), 77)
	require.NoError(t, err)
	require.True(t, rate.Equal(sdkmath.LegacyMustNewDecFromStr("1.1")))

	require.Equal(t, "market", wasm.lastReq.Address)
	var q map[string]map[string]uint64
	require.NoError(t, json.Unmarshal(wasm.lastReq.QueryData, &q))
	require.Equal(t, uint64(77), q["epoch_state"]["block_height"])
	require.Equal(t, []string{"77"}, wasm.lastMeta.Get(grpctypes.GRPCBlockHeightHeader))

	_, err = client.ExchangeRate(context.Background(), -1)
	require.ErrorIs(t, err, ErrInvalidBlockHeight)

	wasm.err = errors.New("unavailable")
	_, err = client.ExchangeRate(context.Background(), 77)
	require.Error(t, err)
}

func TestLedgerClientBalances(t *testing.T) {
	wasm := &stubWasm{data: []byte(`{"balance":"42"}`)}
	bank := &stubBank{}
	client := &LedgerClient{bank: bank, wasm: wasm, logger: zerolog.Nop()}
	ctx := context.Background()

	got, err := client.Balance(ctx, "vault", types.NativeAsset("uusdc"))
	require.NoError(t, err)
	require.True(t, got.IsZero())

	coin := sdk.NewInt64Coin("uusdc", 900)
	bank.balance = &coin
	got, err = client.Balance(ctx, "vault", types.NativeAsset("uusdc"))
	require.NoError(t, err)
	require.Equal(t, "900", got.String())

	got, err = client.Balance(ctx, "vault", types.CW20Asset("receipt"))
	require.NoError(t, err)
	require.Equal(t, "42", got.String())
	require.Equal(t, "receipt", wasm.lastReq.Address)
	require.JSONEq(t, `{"balance":{"address":"vault"}}`, string(wasm.lastReq.QueryData))

	_, err = client.Balance(ctx, "vault", types.Asset{Kind: "erc20", ID: "x"})
	require.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestHeightClient(t *testing.T) {
	client := &HeightClient{rpc: stubStatus{height: 1500}}
	h, err := client.LatestHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1500), h)

	client = &HeightClient{rpc: stubStatus{}}
	_, err = client.LatestHeight(context.Background())
	require.ErrorIs(t, err, ErrInvalidBlockHeight)

	_, err = NewHeightClient("")
	require.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestDial(t *testing.T) {
	_, err := Dial("")
	require.ErrorIs(t, err, ErrEmptyEndpoint)

	conn, err := Dial("localhost:9090")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
