package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/reservevault/internal/oracle"
	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/types"
)

// Query answers a read-only request. No authorization applies.
func (k *Keeper) Query(ctx context.Context, env types.Env, q types.Query) (any, error) {
	switch q.(type) {
	case types.TotalValueLockedQuery:
		return k.TotalValueLocked(ctx, env)
	case types.ConfigQuery:
		return k.Config(ctx)
	default:
		return nil, errorsmod.Wrapf(types.ErrUnknownOperation, "query %T", q)
	}
}

// TotalValueLocked returns the vault's stable balance plus the stable value
// of its receipts at env.BlockHeight.
func (k *Keeper) TotalValueLocked(ctx context.Context, env types.Env) (*types.TotalValueLockedResponse, error) {
	cfg, err := k.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return oracle.New(k.ledger, k.market, cfg).TotalValueLocked(ctx, env.VaultAddress, env.BlockHeight)
}

// Config returns the stored vault config.
func (k *Keeper) Config(ctx context.Context) (types.VaultConfig, error) {
	return k.store.LoadConfig(ctx)
}

// PlanRebalance is a dry run of Rebalance to target: no authorization, no
// instructions executed.
func (k *Keeper) PlanRebalance(ctx context.Context, env types.Env, target sdkmath.Int) (rebalancer.Plan, error) {
	cfg, err := k.store.LoadConfig(ctx)
	if err != nil {
		return rebalancer.Plan{}, err
	}
	return k.rebalancer.Plan(ctx, env, oracle.New(k.ledger, k.market, cfg), target)
}
