package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/reservevault/internal/config"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
)

func addr(t *testing.T, name string) string {
	t.Helper()
	bz := make([]byte, 20)
	copy(bz, name)
	a, err := bech32.ConvertAndEncode("elys", bz)
	require.NoError(t, err)
	return a
}

type fakeBroadcaster struct {
	address string
	sent    []sdk.Msg
	err     error
}

func (f *fakeBroadcaster) Address() string { return f.address }

func (f *fakeBroadcaster) SignAndBroadcastTx(_ context.Context, msgs ...sdk.Msg) (*sdk.TxResponse, error) {
	f.sent = append(f.sent, msgs...)
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.TxResponse{TxHash: "ABC"}, nil
}

func TestBuildExecuteMsg(t *testing.T) {
	owner, vault := addr(t, "owner"), addr(t, "vault")
	funds := sdk.NewCoins(sdk.NewInt64Coin("uusdc", 500))

	msg, err := BuildExecuteMsg(owner, vault, types.DepositMsg{}, funds)
	require.NoError(t, err)
	require.Equal(t, owner, msg.Sender)
	require.Equal(t, vault, msg.Contract)
	require.JSONEq(t, `{"deposit":{}}`, string(msg.Msg))
	require.Equal(t, "500uusdc", msg.Funds.String())

	_, err = BuildExecuteMsg(owner, vault, nil, nil)
	require.ErrorIs(t, err, types.ErrUnknownOperation)
}

func TestVaultExecutorDeposit(t *testing.T) {
	signer := &fakeBroadcaster{address: addr(t, "owner")}
	exec, err := NewVaultExecutor(signer, addr(t, "vault"))
	require.NoError(t, err)

	res, err := exec.Deposit(context.Background(), sdk.NewInt64Coin("uusdc", 130))
	require.NoError(t, err)
	require.Equal(t, "ABC", res.TxHash)
	require.Len(t, signer.sent, 1)

	msg, ok := signer.sent[0].(*wasmtypes.MsgExecuteContract)
	require.True(t, ok)
	require.Equal(t, "130uusdc", msg.Funds.String())

	_, err = exec.Deposit(context.Background(), sdk.NewInt64Coin("uusdc", 0))
	require.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = exec.Deposit(context.Background(), sdk.Coin{Denom: "", Amount: sdkmath.NewInt(5)})
	require.ErrorIs(t, err, types.ErrInvalidFunds)
	require.Len(t, signer.sent, 1)
}

func TestVaultExecutorRedeem(t *testing.T) {
	signer := &fakeBroadcaster{address: addr(t, "owner")}
	exec, err := NewVaultExecutor(signer, addr(t, "vault"))
	require.NoError(t, err)

	_, err = exec.Redeem(context.Background(), sdkmath.NewInt(250))
	require.NoError(t, err)

	msg := signer.sent[0].(*wasmtypes.MsgExecuteContract)
	require.Empty(t, msg.Funds)
	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(msg.Msg, &payload))
	require.Equal(t, "250", payload["redeem"]["amount"])

	_, err = exec.Redeem(context.Background(), sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	signer.err = ErrTxRejected
	_, err = exec.Redeem(context.Background(), sdkmath.NewInt(1))
	require.ErrorIs(t, err, ErrTxRejected)
}

func TestNewVaultExecutorValidation(t *testing.T) {
	_, err := NewVaultExecutor(nil, addr(t, "vault"))
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = NewVaultExecutor(&fakeBroadcaster{}, "not-an-address")
	require.Error(t, err)
}

func TestMakeEncodingConfig(t *testing.T) {
	enc, err := MakeEncodingConfig()
	require.NoError(t, err)

	resolved, err := enc.InterfaceRegistry.Resolve("/cosmwasm.wasm.v1.MsgExecuteContract")
	require.NoError(t, err)
	require.IsType(t, &wasmtypes.MsgExecuteContract{}, resolved)
	require.NotNil(t, enc.TxConfig.TxEncoder())
}

func TestValidateSignerConfig(t *testing.T) {
	saved := []any{config.ChainID, config.KeyName, config.KeyringDir, config.KeyringBackend, config.NodeRPC,
		config.DefaultGasLimit, config.GasAdjustment, config.GasPriceAmount, config.GasPriceDenom}
	t.Cleanup(func() {
		config.ChainID = saved[0].(string)
		config.KeyName = saved[1].(string)
		config.KeyringDir = saved[2].(string)
		config.KeyringBackend = saved[3].(string)
		config.NodeRPC = saved[4].(string)
		config.DefaultGasLimit = saved[5].(uint64)
		config.GasAdjustment = saved[6].(float64)
		config.GasPriceAmount = saved[7].(string)
		config.GasPriceDenom = saved[8].(string)
	})

	config.ChainID = "elys-1"
	config.KeyName = "owner"
	config.KeyringDir = t.TempDir()
	config.KeyringBackend = "test"
	config.NodeRPC = "http://localhost:26657"
	config.DefaultGasLimit = 400000
	config.GasAdjustment = 1.5
	config.GasPriceAmount = "0.0025"
	config.GasPriceDenom = "uelys"
	require.NoError(t, ValidateSignerConfig())

	config.GasAdjustment = 11
	require.Error(t, ValidateSignerConfig())
	config.GasAdjustment = 1.5

	config.GasPriceDenom = "!"
	require.Error(t, ValidateSignerConfig())
	config.GasPriceDenom = "uelys"

	config.ChainID = ""
	require.Error(t, ValidateSignerConfig())

	_, err := NewSigningClient(nil)
	require.True(t, errors.Is(err, ErrGRPCConnectionInvalid))
}

func TestVaultExecutorJournal(t *testing.T) {
	signer := &fakeBroadcaster{address: addr(t, "owner")}
	exec, err := NewVaultExecutor(signer, addr(t, "vault"))
	require.NoError(t, err)
	journal := state.NewMemoryJournal()
	exec.WithJournal(journal)

	_, err = exec.Deposit(context.Background(), sdk.NewInt64Coin("uusdc", 130))
	require.NoError(t, err)

	signer.err = ErrTxRejected
	_, err = exec.Redeem(context.Background(), sdkmath.NewInt(5))
	require.Error(t, err)

	records, err := journal.RecentExecutions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "redeem", records[0].Operation)
	require.False(t, records[0].Success)
	require.Equal(t, types.ClassExternal, records[0].ErrorClass)
	require.Equal(t, "deposit", records[1].Operation)
	require.True(t, records[1].Success)
	require.Equal(t, []types.Attribute{{Key: "tx_hash", Value: "ABC"}}, records[1].Attributes)
}
