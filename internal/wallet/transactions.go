package wallet

import (
	"context"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	wasmtypes "github.com/CosmWasm/wasmd/x/wasm/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
)

// Broadcaster signs and broadcasts messages. SigningClient implements it.
type Broadcaster interface {
	Address() string
	SignAndBroadcastTx(ctx context.Context, msgs ...sdk.Msg) (*sdk.TxResponse, error)
}

// VaultExecutor submits owner operations to a deployed vault contract.
type VaultExecutor struct {
	signer  Broadcaster
	vault   string
	journal state.Journal
	now     func() time.Time
	logger  zerolog.Logger
}

// NewVaultExecutor binds signer to the vault contract at vault.
func NewVaultExecutor(signer Broadcaster, vault string) (*VaultExecutor, error) {
	if signer == nil {
		return nil, errorsmod.Wrap(types.ErrInvalidConfig, "signer cannot be nil")
	}
	if err := types.ValidateAddress(vault); err != nil {
		return nil, errorsmod.Wrap(err, "vault address")
	}
	return &VaultExecutor{
		signer: signer,
		vault:  vault,
		now:    time.Now,
		logger: logger.GetForComponent("vault_executor"),
	}, nil
}

// WithJournal records every submission, accepted or not, in journal.
func (e *VaultExecutor) WithJournal(journal state.Journal) *VaultExecutor {
	e.journal = journal
	return e
}

// Deposit sends coin to the vault with a deposit message.
func (e *VaultExecutor) Deposit(ctx context.Context, coin sdk.Coin) (*sdk.TxResponse, error) {
	if err := coin.Validate(); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidFunds, err.Error())
	}
	if !coin.Amount.IsPositive() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "deposit amount must be positive")
	}
	return e.execute(ctx, types.DepositMsg{}, sdk.NewCoins(coin))
}

// Redeem asks the vault to pay amount stable units to the owner.
func (e *VaultExecutor) Redeem(ctx context.Context, amount sdkmath.Int) (*sdk.TxResponse, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "redeem amount must be positive")
	}
	return e.execute(ctx, types.RedeemMsg{Amount: amount}, nil)
}

func (e *VaultExecutor) execute(ctx context.Context, op types.Operation, funds sdk.Coins) (*sdk.TxResponse, error) {
	msg, err := BuildExecuteMsg(e.signer.Address(), e.vault, op, funds)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("operation", op.OperationName()).
		Str("vault", e.vault).
		Str("funds", funds.String()).
		Msg("Submitting vault operation")

	res, err := e.signer.SignAndBroadcastTx(ctx, msg)
	e.record(ctx, op, msg, res, err)
	if err != nil {
		return res, fmt.Errorf("%s failed: %w", op.OperationName(), err)
	}
	return res, nil
}

func (e *VaultExecutor) record(ctx context.Context, op types.Operation, msg *wasmtypes.MsgExecuteContract, res *sdk.TxResponse, txErr error) {
	if e.journal == nil {
		return
	}
	rec := types.ExecutionRecord{
		ChainID:      uuid.NewString(),
		Operation:    op.OperationName(),
		Sender:       msg.Sender,
		Timestamp:    e.now().UTC(),
		Success:      txErr == nil,
		Instructions: []string{fmt.Sprintf("EXECUTE_CONTRACT %s %s funds=%s", msg.Contract, msg.Msg, msg.Funds)},
	}
	if res != nil {
		rec.Height = res.Height
		rec.Attributes = append(rec.Attributes, types.Attribute{Key: "tx_hash", Value: res.TxHash})
	}
	if txErr != nil {
		rec.Error = txErr.Error()
		rec.ErrorClass = types.Classify(txErr)
	}
	if err := e.journal.SaveExecution(ctx, rec); err != nil {
		e.logger.Error().Err(err).Str("operation", op.OperationName()).Msg("Failed to journal submission")
	}
}

// BuildExecuteMsg wraps op in a wasm MsgExecuteContract from sender to contract.
func BuildExecuteMsg(sender, contract string, op types.Operation, funds sdk.Coins) (*wasmtypes.MsgExecuteContract, error) {
	payload, err := types.EncodeExecuteMsg(op)
	if err != nil {
		return nil, err
	}
	return &wasmtypes.MsgExecuteContract{
		Sender:   sender,
		Contract: contract,
		Msg:      wasmtypes.RawContractMessage(payload),
		Funds:    funds,
	}, nil
}
