package rebalancer_test

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/types"
)

const vaultAddr = "vault"

var cfg = types.VaultConfig{
	YieldMarketAddress:    "market",
	ReceiptAssetAddress:   "receipt",
	StableDenom:           "uusd",
	MinimumStableReserved: sdkmath.NewInt(100),
	Owner:                 "owner",
}

var env = types.Env{BlockHeight: 7, VaultAddress: vaultAddr}

type stubReader struct {
	stable, receipt sdkmath.Int
	rate            sdkmath.LegacyDec
	rateErr         error
	rateCalls       int
	receiptCalls    int
}

func (s *stubReader) StableBalance(context.Context, string) (sdkmath.Int, error) {
	return s.stable, nil
}

func (s *stubReader) ReceiptBalance(context.Context, string) (sdkmath.Int, error) {
	s.receiptCalls++
	return s.receipt, nil
}

func (s *stubReader) ExchangeRate(context.Context, int64) (sdkmath.LegacyDec, error) {
	s.rateCalls++
	return s.rate, s.rateErr
}

func TestRebalanceDepositsSurplus(t *testing.T) {
	reader := &stubReader{stable: sdkmath.NewInt(130), receipt: sdkmath.ZeroInt(), rate: sdkmath.LegacyOneDec()}

	resp, err := rebalancer.New().Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)

	in := resp.Instructions[0]
	require.Equal(t, types.InstructionYieldDeposit, in.Type)
	require.Equal(t, "market", in.Contract)
	require.Equal(t, sdk.NewCoins(sdk.NewInt64Coin("uusd", 30)), in.Funds)

	deposit, ok := resp.Attribute("rebalance:deposit_stable")
	require.True(t, ok)
	require.Equal(t, "30", deposit)

	require.Zero(t, reader.rateCalls, "surplus path must not query the exchange rate")
	require.Zero(t, reader.receiptCalls)
}

func TestRebalanceClampsRedemptionToHeldReceipts(t *testing.T) {
	// 1.25 receipts per stable unit, i.e. 0.8 stable per receipt.
	reader := &stubReader{stable: sdkmath.NewInt(40), receipt: sdkmath.NewInt(50), rate: sdkmath.LegacyMustNewDecFromStr("0.8")}

	r := rebalancer.New()
	plan, err := r.Plan(context.Background(), env, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Equal(t, rebalancer.DirectionRedeem, plan.Direction)
	require.Equal(t, sdkmath.NewInt(60), plan.RedeemStable)
	require.Equal(t, sdkmath.NewInt(76), plan.RequiredReceipts)
	require.Equal(t, sdkmath.NewInt(50), plan.RedeemReceipts)
	require.True(t, plan.Clamped)

	resp, err := r.Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)

	in := resp.Instructions[0]
	require.Equal(t, types.InstructionReceiptSend, in.Type)
	require.Equal(t, "receipt", in.Contract)
	require.Equal(t, "market", in.HookContract)
	require.Equal(t, types.HookRedeemStable, in.Hook)
	require.Equal(t, sdkmath.NewInt(50), in.Amount)
}

func TestRebalanceRedeemsRequiredReceiptsWhenHeld(t *testing.T) {
	reader := &stubReader{stable: sdkmath.NewInt(40), receipt: sdkmath.NewInt(1000), rate: sdkmath.LegacyMustNewDecFromStr("1.25")}

	resp, err := rebalancer.New().Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)
	require.Equal(t, sdkmath.NewInt(48), resp.Instructions[0].Amount) // floor(61 / 1.25)

	redeemed, _ := resp.Attribute("rebalance:redeem_receipt")
	require.Equal(t, "48", redeemed)
}

func TestRebalanceWithoutReceiptsEmitsNothing(t *testing.T) {
	reader := &stubReader{stable: sdkmath.NewInt(40), receipt: sdkmath.ZeroInt(), rate: sdkmath.LegacyOneDec()}

	resp, err := rebalancer.New().Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Empty(t, resp.Instructions)
}

func TestRebalanceAtTargetEmitsNothing(t *testing.T) {
	reader := &stubReader{stable: sdkmath.NewInt(100), receipt: sdkmath.NewInt(10), rate: sdkmath.LegacyOneDec()}

	resp, err := rebalancer.New().Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.NoError(t, err)
	require.Empty(t, resp.Instructions)
	require.Zero(t, reader.rateCalls)
}

func TestRebalanceRejectsExternalCallers(t *testing.T) {
	reader := &stubReader{stable: sdkmath.NewInt(130), receipt: sdkmath.ZeroInt(), rate: sdkmath.LegacyOneDec()}

	for _, caller := range []string{"owner", "attacker", ""} {
		_, err := rebalancer.New().Rebalance(context.Background(), env, caller, cfg, reader, cfg.MinimumStableReserved)
		require.ErrorIs(t, err, types.ErrUnauthorized, "caller %q", caller)
	}
}

func TestRebalancePropagatesRateFailure(t *testing.T) {
	boom := errors.New("market unreachable")
	reader := &stubReader{stable: sdkmath.NewInt(10), receipt: sdkmath.NewInt(10), rateErr: boom}

	_, err := rebalancer.New().Rebalance(context.Background(), env, vaultAddr, cfg, reader, cfg.MinimumStableReserved)
	require.ErrorIs(t, err, boom)
}

func TestDecideIsPure(t *testing.T) {
	inputs := []rebalancer.Inputs{
		{StableBalance: sdkmath.NewInt(130), Target: sdkmath.NewInt(100)},
		{StableBalance: sdkmath.NewInt(40), Target: sdkmath.NewInt(100), ReceiptBalance: sdkmath.NewInt(50), ExchangeRate: sdkmath.LegacyMustNewDecFromStr("0.8")},
		{StableBalance: sdkmath.NewInt(40), Target: sdkmath.NewInt(100), ReceiptBalance: sdkmath.NewInt(500), ExchangeRate: sdkmath.LegacyMustNewDecFromStr("3.3")},
		{StableBalance: sdkmath.NewInt(100), Target: sdkmath.NewInt(100)},
	}
	for _, in := range inputs {
		first, err := rebalancer.Decide(in)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := rebalancer.Decide(in)
			require.NoError(t, err)
			require.Equal(t, first, again)
			require.Equal(t, first.Instructions(cfg), again.Instructions(cfg))
		}
	}
}

func TestDecideRejectsInvalidInputs(t *testing.T) {
	_, err := rebalancer.Decide(rebalancer.Inputs{StableBalance: sdkmath.NewInt(1), Target: sdkmath.NewInt(-1)})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = rebalancer.Decide(rebalancer.Inputs{StableBalance: sdkmath.Int{}, Target: sdkmath.NewInt(1)})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = rebalancer.Decide(rebalancer.Inputs{StableBalance: sdkmath.NewInt(1), Target: sdkmath.NewInt(5), ReceiptBalance: sdkmath.NewInt(5), ExchangeRate: sdkmath.LegacyZeroDec()})
	require.ErrorIs(t, err, types.ErrInvalidExchangeRate)
}
