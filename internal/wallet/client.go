package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	txsigning "cosmossdk.io/x/tx/signing"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	addresscodec "github.com/cosmos/cosmos-sdk/codec/address"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	"github.com/cosmos/gogoproto/proto"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/elys-network/reservevault/internal/config"
	"github.com/elys-network/reservevault/internal/logger"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidConfig         = errors.New("invalid signer configuration")
	ErrKeyringInit           = errors.New("keyring initialization failed")
	ErrKeyNotFound           = errors.New("signing key not found")
	ErrRPCConnectionFailed   = errors.New("RPC connection failed")
	ErrGRPCConnectionInvalid = errors.New("gRPC connection is invalid")
	ErrAccountRetrieval      = errors.New("account retrieval failed")
	ErrTxBuildFailed         = errors.New("transaction build failed")
	ErrTxSignFailed          = errors.New("transaction signing failed")
	ErrTxBroadcastFailed     = errors.New("transaction broadcast failed")
	ErrTxRejected            = errors.New("transaction rejected by chain")
)

const (
	Bech32PrefixAccAddr  = "elys"
	Bech32PrefixValAddr  = "elysvaloper"
	Bech32PrefixConsAddr = "elysvalcons"

	// gasBuffer is added on top of the adjusted simulation result.
	gasBuffer = 10000
)

var (
	sdkConfigOnce  sync.Once
	sdkConfigError error
)

// EncodingConfig bundles what the signer needs to encode and decode transactions.
type EncodingConfig struct {
	InterfaceRegistry codectypes.InterfaceRegistry
	Codec             codec.Codec
	TxConfig          client.TxConfig
}

// MakeEncodingConfig builds an encoding config that knows the standard SDK
// types, auth accounts and the wasm execute message.
func MakeEncodingConfig() (EncodingConfig, error) {
	registry, err := codectypes.NewInterfaceRegistryWithOptions(codectypes.InterfaceRegistryOptions{
		ProtoFiles: proto.HybridResolver,
		SigningOptions: txsigning.Options{
			AddressCodec:          addresscodec.NewBech32Codec(Bech32PrefixAccAddr),
			ValidatorAddressCodec: addresscodec.NewBech32Codec(Bech32PrefixValAddr),
		},
	})
	if err != nil {
		return EncodingConfig{}, fmt.Errorf("failed to create interface registry: %w", err)
	}

	std.RegisterInterfaces(registry)
	authtypes.RegisterInterfaces(registry)
	wasmtypes.RegisterInterfaces(registry)

	cdc := codec.NewProtoCodec(registry)
	return EncodingConfig{
		InterfaceRegistry: registry,
		Codec:             cdc,
		TxConfig:          authtx.NewTxConfig(cdc, authtx.DefaultSignModes),
	}, nil
}

// SigningClient signs and broadcasts transactions with the owner key.
type SigningClient struct {
	clientCtx   client.Context
	txFactory   tx.Factory
	grpcConn    *grpc.ClientConn
	fromAddress sdk.AccAddress
	logger      zerolog.Logger
}

// NewSigningClient creates a signing client on top of an existing gRPC connection.
// config.LoadSignerConfig must have been called.
func NewSigningClient(grpcConn *grpc.ClientConn) (*SigningClient, error) {
	if grpcConn == nil {
		return nil, ErrGRPCConnectionInvalid
	}
	if err := ValidateSignerConfig(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := configureSDK(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	encodingConfig, err := MakeEncodingConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(config.KeyringDir, 0755); err != nil {
		return nil, errors.Join(ErrKeyringInit, fmt.Errorf("failed to create keyring directory: %w", err))
	}
	kr, err := keyring.New("elysd", config.KeyringBackend, config.KeyringDir, os.Stdin, encodingConfig.Codec)
	if err != nil {
		return nil, errors.Join(ErrKeyringInit, err)
	}

	keyInfo, err := kr.Key(config.KeyName)
	if err != nil {
		return nil, errors.Join(ErrKeyNotFound, fmt.Errorf("key '%s' not found in keyring: %w", config.KeyName, err))
	}
	fromAddress, err := keyInfo.GetAddress()
	if err != nil {
		return nil, errors.Join(ErrKeyNotFound, err)
	}

	rpcClient, err := rpchttp.New(config.NodeRPC, "/websocket")
	if err != nil {
		return nil, errors.Join(ErrRPCConnectionFailed, err)
	}

	clientCtx := client.Context{}.
		WithCodec(encodingConfig.Codec).
		WithInterfaceRegistry(encodingConfig.InterfaceRegistry).
		WithTxConfig(encodingConfig.TxConfig).
		WithInput(os.Stdin).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync).
		WithHomeDir(config.KeyringDir).
		WithKeyring(kr).
		WithChainID(config.ChainID).
		WithGRPCClient(grpcConn).
		WithClient(rpcClient).
		WithFromAddress(fromAddress).
		WithFromName(config.KeyName)

	txFactory := tx.Factory{}.
		WithChainID(config.ChainID).
		WithKeybase(kr).
		WithGas(config.DefaultGasLimit).
		WithGasAdjustment(config.GasAdjustment).
		WithGasPrices(config.GasPrice()).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT).
		WithAccountRetriever(clientCtx.AccountRetriever).
		WithTxConfig(clientCtx.TxConfig)

	c := &SigningClient{
		clientCtx:   clientCtx,
		txFactory:   txFactory,
		grpcConn:    grpcConn,
		fromAddress: fromAddress,
		logger:      logger.GetForComponent("wallet_client"),
	}

	c.logger.Info().
		Str("address", fromAddress.String()).
		Str("keyName", config.KeyName).
		Str("chainID", config.ChainID).
		Msg("Signing client initialized")

	return c, nil
}

// ValidateSignerConfig checks the signer settings loaded by config.LoadSignerConfig.
func ValidateSignerConfig() error {
	if config.ChainID == "" {
		return errors.New("chain ID cannot be empty")
	}
	if config.KeyName == "" {
		return errors.New("key name cannot be empty")
	}
	if config.KeyringDir == "" {
		return errors.New("keyring directory cannot be empty")
	}
	if config.KeyringBackend == "" {
		return errors.New("keyring backend cannot be empty")
	}
	if config.NodeRPC == "" {
		return errors.New("node RPC endpoint cannot be empty")
	}
	if config.DefaultGasLimit == 0 {
		return errors.New("default gas limit cannot be zero")
	}
	if math.IsNaN(config.GasAdjustment) || math.IsInf(config.GasAdjustment, 0) {
		return errors.New("gas adjustment is not finite")
	}
	if config.GasAdjustment <= 0 || config.GasAdjustment > 10 {
		return errors.New("gas adjustment must be between 0 and 10")
	}
	if _, err := sdk.ParseDecCoins(config.GasPrice()); err != nil {
		return fmt.Errorf("invalid gas price %q: %w", config.GasPrice(), err)
	}
	return nil
}

// configureSDK sets the Elys bech32 prefixes once per process.
func configureSDK() error {
	sdkConfigOnce.Do(func() {
		sdkConfig := sdk.GetConfig()
		if sdkConfig == nil {
			sdkConfigError = errors.New("failed to get SDK config")
			return
		}
		sdkConfig.SetBech32PrefixForAccount(Bech32PrefixAccAddr, Bech32PrefixAccAddr+"pub")
		sdkConfig.SetBech32PrefixForValidator(Bech32PrefixValAddr, Bech32PrefixValAddr+"pub")
		sdkConfig.SetBech32PrefixForConsensusNode(Bech32PrefixConsAddr, Bech32PrefixConsAddr+"pub")
		sdkConfig.Seal()
	})
	return sdkConfigError
}

// Address returns the signer's bech32 address.
func (s *SigningClient) Address() string {
	return s.fromAddress.String()
}

// SignAndBroadcastTx simulates gas, signs and broadcasts msgs in sync mode.
// A non-zero check-tx code is reported as ErrTxRejected.
func (s *SigningClient) SignAndBroadcastTx(ctx context.Context, msgs ...sdk.Msg) (*sdk.TxResponse, error) {
	if len(msgs) == 0 {
		return nil, errors.Join(ErrTxBuildFailed, errors.New("messages cannot be empty"))
	}
	for i, msg := range msgs {
		if msg == nil {
			return nil, errors.Join(ErrTxBuildFailed, fmt.Errorf("message %d is nil", i))
		}
		if validator, ok := msg.(sdk.HasValidateBasic); ok {
			if err := validator.ValidateBasic(); err != nil {
				return nil, errors.Join(ErrTxBuildFailed, fmt.Errorf("message %d validation failed: %w", i, err))
			}
		}
	}

	account, err := s.clientCtx.AccountRetriever.GetAccount(s.clientCtx, s.fromAddress)
	if err != nil {
		return nil, errors.Join(ErrAccountRetrieval, err)
	}

	factory := s.txFactory.
		WithAccountNumber(account.GetAccountNumber()).
		WithSequence(account.GetSequence())

	gas, err := s.simulateGas(ctx, factory, msgs...)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("fallbackGas", config.DefaultGasLimit).Msg("Gas estimation failed, using default gas limit")
		gas = config.DefaultGasLimit
	}
	factory = factory.WithGas(gas)

	txBuilder, err := factory.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}
	if err := tx.Sign(ctx, factory, s.clientCtx.GetFromName(), txBuilder, true); err != nil {
		return nil, errors.Join(ErrTxSignFailed, err)
	}
	txBytes, err := s.clientCtx.TxConfig.TxEncoder()(txBuilder.GetTx())
	if err != nil {
		return nil, errors.Join(ErrTxBuildFailed, err)
	}

	res, err := s.clientCtx.BroadcastTx(txBytes)
	if err != nil {
		return nil, errors.Join(ErrTxBroadcastFailed, err)
	}
	if res == nil || res.TxHash == "" {
		return nil, errors.Join(ErrTxBroadcastFailed, errors.New("empty broadcast response"))
	}

	s.logger.Info().
		Str("txHash", res.TxHash).
		Uint32("code", res.Code).
		Uint64("gas", gas).
		Int("messageCount", len(msgs)).
		Msg("Transaction broadcast")

	if res.Code != 0 {
		return res, fmt.Errorf("%w: code %d: %s", ErrTxRejected, res.Code, res.RawLog)
	}
	return res, nil
}

// simulateGas asks the node for the gas used by msgs and applies the
// configured adjustment plus a fixed buffer.
func (s *SigningClient) simulateGas(ctx context.Context, factory tx.Factory, msgs ...sdk.Msg) (uint64, error) {
	txBytes, err := factory.WithGas(0).BuildSimTx(msgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to build simulation transaction: %w", err)
	}

	simRes, err := txtypes.NewServiceClient(s.grpcConn).Simulate(ctx, &txtypes.SimulateRequest{TxBytes: txBytes})
	if err != nil {
		return 0, fmt.Errorf("gas simulation failed: %w", err)
	}
	if simRes.GasInfo == nil || simRes.GasInfo.GasUsed == 0 {
		return 0, errors.New("simulation returned no gas usage")
	}

	adjusted := uint64(factory.GasAdjustment() * float64(simRes.GasInfo.GasUsed))
	s.logger.Debug().
		Uint64("simulatedGas", simRes.GasInfo.GasUsed).
		Uint64("adjustedGas", adjusted).
		Msg("Gas estimated")
	return adjusted + gasBuffer, nil
}
