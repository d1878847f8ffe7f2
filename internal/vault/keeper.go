/*

This file contains the vault accounting state machine. The keeper loads the
config slot at the start of every operation, checks the caller, and answers
with the instructions the host must run. It never moves funds itself.

*/

package vault

import (
	"context"
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/flashloan"
	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/oracle"
	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
)

// Keeper executes vault operations against a config slot, a ledger and a
// yield market.
type Keeper struct {
	store      state.ConfigStore
	ledger     oracle.Ledger
	market     oracle.YieldMarket
	rebalancer *rebalancer.Rebalancer
	engine     *flashloan.Engine
	logger     zerolog.Logger
}

// Config holds the dependencies for creating a new Keeper
type Config struct {
	Store  state.ConfigStore
	Ledger oracle.Ledger
	Market oracle.YieldMarket
	// Loans is the transient flash-loan book. A fresh one is created when nil.
	Loans *flashloan.Book
}

// NewKeeper creates a Keeper with dependency injection
func NewKeeper(cfg Config) (*Keeper, error) {
	if err := validateKeeperConfig(cfg); err != nil {
		return nil, fmt.Errorf("keeper configuration validation failed: %w", err)
	}
	loans := cfg.Loans
	if loans == nil {
		loans = flashloan.NewBook()
	}
	return &Keeper{
		store:      cfg.Store,
		ledger:     cfg.Ledger,
		market:     cfg.Market,
		rebalancer: rebalancer.New(),
		engine:     flashloan.NewEngine(loans),
		logger:     logger.GetForComponent("vault"),
	}, nil
}

func validateKeeperConfig(cfg Config) error {
	if cfg.Store == nil {
		return errors.New("config store is required")
	}
	if cfg.Ledger == nil {
		return errors.New("ledger is required")
	}
	if cfg.Market == nil {
		return errors.New("yield market is required")
	}
	return nil
}

// Loans returns the flash-loan book the keeper records open loans in.
func (k *Keeper) Loans() *flashloan.Book {
	return k.engine.Book()
}

// Instantiate validates msg and stores it as the vault config with the
// caller as owner. A vault is instantiated once.
func (k *Keeper) Instantiate(ctx context.Context, env types.Env, info types.MessageInfo, msg types.InstantiateMsg) (*types.Response, error) {
	_, err := k.store.LoadConfig(ctx)
	switch {
	case err == nil:
		return nil, errorsmod.Wrap(types.ErrInvalidConfig, "vault already instantiated")
	case !errors.Is(err, types.ErrConfigNotFound):
		return nil, err
	}

	cfg := types.VaultConfig{
		YieldMarketAddress:    msg.YieldMarketAddress,
		ReceiptAssetAddress:   msg.ReceiptAssetAddress,
		StableDenom:           msg.StableDenom,
		MinimumStableReserved: msg.MinimumStableReserved,
		Owner:                 info.Sender,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := k.store.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}

	k.logger.Info().
		Str("owner", cfg.Owner).
		Str("market", cfg.YieldMarketAddress).
		Str("stable_denom", cfg.StableDenom).
		Str("minimum_reserved", cfg.MinimumStableReserved.String()).
		Int64("height", env.BlockHeight).
		Msg("Vault instantiated")

	return types.NewResponse("instantiate"), nil
}

// Execute dispatches op. info.Funds have already been moved to the vault.
func (k *Keeper) Execute(ctx context.Context, env types.Env, info types.MessageInfo, op types.Operation) (*types.Response, error) {
	if msg, ok := op.(types.InstantiateMsg); ok {
		return k.Instantiate(ctx, env, info, msg)
	}

	cfg, err := k.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	reader := oracle.New(k.ledger, k.market, cfg)

	switch msg := op.(type) {
	case types.DepositMsg:
		return k.deposit(env, info, cfg)
	case types.RedeemMsg:
		return k.redeem(ctx, env, info, cfg, reader, msg.Amount)
	case types.RebalanceMsg:
		return k.rebalancer.Rebalance(ctx, env, info.Sender, cfg, reader, msg.ReservedTarget)
	case types.FlashLoanMsg:
		return k.engine.RequestLoan(ctx, env, info.Sender, cfg, reader, msg)
	case types.AssertRepaymentMsg:
		return k.engine.AssertRepayment(ctx, env, info.Sender, cfg, reader, msg.Context)
	default:
		return nil, errorsmod.Wrapf(types.ErrUnknownOperation, "%T", op)
	}
}

func (k *Keeper) deposit(env types.Env, info types.MessageInfo, cfg types.VaultConfig) (*types.Response, error) {
	if info.Sender != cfg.Owner {
		return nil, errorsmod.Wrap(types.ErrUnauthorized, "deposit can be called by owner only")
	}
	coin, err := singleStableCoin(info.Funds, cfg.StableDenom)
	if err != nil {
		return nil, err
	}

	k.logger.Info().Str("amount", coin.Amount.String()).Int64("height", env.BlockHeight).Msg("Deposit received")

	return types.NewResponse("deposit").
		AddAttribute("deposit:amount", coin.Amount).
		AddInstruction(types.NewSelfCall(env.VaultAddress, types.RebalanceMsg{ReservedTarget: cfg.MinimumStableReserved})), nil
}

// singleStableCoin requires funds to be exactly one nonzero coin of denom.
func singleStableCoin(funds sdk.Coins, denom string) (sdk.Coin, error) {
	if len(funds) != 1 {
		return sdk.Coin{}, errorsmod.Wrapf(types.ErrInvalidFunds, "expected exactly one coin, got %d", len(funds))
	}
	coin := funds[0]
	if coin.Denom != denom {
		return sdk.Coin{}, errorsmod.Wrapf(types.ErrInvalidFunds, "expected %s, got %s", denom, coin.Denom)
	}
	if coin.Amount.IsNil() || !coin.Amount.IsPositive() {
		return sdk.Coin{}, errorsmod.Wrap(types.ErrInvalidFunds, "deposit amount must be positive")
	}
	return coin, nil
}

func (k *Keeper) redeem(ctx context.Context, env types.Env, info types.MessageInfo, cfg types.VaultConfig, reader *oracle.Oracle, amount sdkmath.Int) (*types.Response, error) {
	if info.Sender != cfg.Owner {
		return nil, errorsmod.Wrap(types.ErrUnauthorized, "redeem can be called by owner only")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "redeem amount must be positive")
	}

	tvl, err := reader.TotalValueLocked(ctx, env.VaultAddress, env.BlockHeight)
	if err != nil {
		return nil, err
	}
	if tvl.TVL.LT(amount) {
		return nil, errorsmod.Wrapf(types.ErrInsufficientBalance, "total value locked %s below %s", tvl.TVL, amount)
	}

	target, err := amount.SafeAdd(cfg.MinimumStableReserved)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrOverflow, err.Error())
	}

	k.logger.Info().
		Str("amount", amount.String()).
		Str("tvl", tvl.TVL.String()).
		Str("reserved_target", target.String()).
		Msg("Redeem scheduled")

	return types.NewResponse("redeem").
		AddAttribute("redeem:reserved_target", target).
		AddInstruction(types.NewSelfCall(env.VaultAddress, types.RebalanceMsg{ReservedTarget: target})).
		AddInstruction(types.NewBankSend(info.Sender, sdk.NewCoins(sdk.NewCoin(cfg.StableDenom, amount)))), nil
}
