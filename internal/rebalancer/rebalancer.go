package rebalancer

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/types"
)

// BalanceReader is the subset of the balance oracle the rebalancer needs.
type BalanceReader interface {
	StableBalance(ctx context.Context, account string) (sdkmath.Int, error)
	ReceiptBalance(ctx context.Context, account string) (sdkmath.Int, error)
	ExchangeRate(ctx context.Context, height int64) (sdkmath.LegacyDec, error)
}

// Rebalancer moves the vault's liquid stable balance to a reserve target by
// emitting deposit or redeem instructions for the yield market.
type Rebalancer struct {
	logger zerolog.Logger
}

// New creates a rebalancer.
func New() *Rebalancer {
	return &Rebalancer{logger: logger.GetForComponent("rebalancer")}
}

// Rebalance is only callable by the vault itself.
func (r *Rebalancer) Rebalance(ctx context.Context, env types.Env, caller string, cfg types.VaultConfig, reader BalanceReader, target sdkmath.Int) (*types.Response, error) {
	if caller != env.VaultAddress {
		return nil, errorsmod.Wrap(types.ErrUnauthorized, "rebalance can be called by vault only")
	}

	plan, err := r.Plan(ctx, env, reader, target)
	if err != nil {
		return nil, err
	}

	resp := types.NewResponse("rebalance")
	if plan.Direction == DirectionDeposit {
		resp.AddAttribute("rebalance:deposit_stable", plan.DepositStable)
	}
	if !plan.RedeemStable.IsZero() {
		resp.AddAttribute("rebalance:redeem_stable", plan.RedeemStable)
		resp.AddAttribute("rebalance:redeem_receipt", plan.RedeemReceipts)
	}
	for _, in := range plan.Instructions(cfg) {
		resp.AddInstruction(in)
	}
	return resp, nil
}

// Plan gathers the decision inputs for the vault and decides. It performs no
// authorization and emits nothing, so it can be used for dry runs.
func (r *Rebalancer) Plan(ctx context.Context, env types.Env, reader BalanceReader, target sdkmath.Int) (Plan, error) {
	if target.IsNil() || target.IsNegative() {
		return Plan{}, errorsmod.Wrap(types.ErrInvalidAmount, "reserved target must be non-negative")
	}

	stable, err := reader.StableBalance(ctx, env.VaultAddress)
	if err != nil {
		return Plan{}, err
	}
	in := Inputs{StableBalance: stable, Target: target}

	// Receipts and the rate are only read when liquidity has to be raised.
	if stable.LT(target) {
		if in.ExchangeRate, err = reader.ExchangeRate(ctx, env.BlockHeight); err != nil {
			return Plan{}, err
		}
		if in.ReceiptBalance, err = reader.ReceiptBalance(ctx, env.VaultAddress); err != nil {
			return Plan{}, err
		}
	}

	plan, err := Decide(in)
	if err != nil {
		return Plan{}, err
	}

	r.logger.Debug().
		Str("direction", string(plan.Direction)).
		Str("stable", stable.String()).
		Str("target", target.String()).
		Str("deposit", plan.DepositStable.String()).
		Str("redeem_receipts", plan.RedeemReceipts.String()).
		Bool("clamped", plan.Clamped).
		Int64("height", env.BlockHeight).
		Msg("Rebalance decided")
	if plan.Clamped {
		r.logger.Warn().
			Str("required", plan.RequiredReceipts.String()).
			Str("held", plan.RedeemReceipts.String()).
			Msg("Receipt balance short of deficit, redeeming what is held")
	}
	return plan, nil
}
