package vault_test

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/reservevault/internal/host"
	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
	"github.com/elys-network/reservevault/internal/vault"
)

func addr(t *testing.T, name string) string {
	t.Helper()
	bz := make([]byte, 20)
	copy(bz, name)
	a, err := bech32.ConvertAndEncode("elys", bz)
	require.NoError(t, err)
	return a
}

type suite struct {
	keeper *vault.Keeper
	ledger *host.MemLedger
	env    types.Env
	owner  string
	cfg    types.VaultConfig
}

func setup(t *testing.T) *suite {
	t.Helper()
	s := &suite{
		ledger: host.NewMemLedger(),
		env:    types.Env{BlockHeight: 42, VaultAddress: addr(t, "vault")},
		owner:  addr(t, "owner"),
	}
	market := host.NewMarket(addr(t, "market"), addr(t, "receipt"), "uusd", s.ledger, sdkmath.LegacyOneDec())

	var err error
	s.keeper, err = vault.NewKeeper(vault.Config{Store: state.NewMemoryConfigStore(), Ledger: s.ledger, Market: market})
	require.NoError(t, err)

	_, err = s.keeper.Instantiate(context.Background(), s.env, types.MessageInfo{Sender: s.owner}, types.InstantiateMsg{
		YieldMarketAddress:    addr(t, "market"),
		ReceiptAssetAddress:   addr(t, "receipt"),
		StableDenom:           "uusd",
		MinimumStableReserved: sdkmath.NewInt(100),
	})
	require.NoError(t, err)
	s.cfg, err = s.keeper.Config(context.Background())
	require.NoError(t, err)
	return s
}

func TestNewKeeperRequiresDependencies(t *testing.T) {
	_, err := vault.NewKeeper(vault.Config{})
	require.Error(t, err)

	_, err = vault.NewKeeper(vault.Config{Store: state.NewMemoryConfigStore(), Ledger: host.NewMemLedger()})
	require.Error(t, err)
}

func TestOperationsRequireInstantiation(t *testing.T) {
	ledger := host.NewMemLedger()
	keeper, err := vault.NewKeeper(vault.Config{
		Store:  state.NewMemoryConfigStore(),
		Ledger: ledger,
		Market: host.NewMarket("market", "receipt", "uusd", ledger, sdkmath.LegacyOneDec()),
	})
	require.NoError(t, err)

	_, err = keeper.Execute(context.Background(), types.Env{VaultAddress: "vault"}, types.MessageInfo{Sender: "owner"}, types.DepositMsg{})
	require.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestInstantiateValidates(t *testing.T) {
	ledger := host.NewMemLedger()
	keeper, err := vault.NewKeeper(vault.Config{
		Store:  state.NewMemoryConfigStore(),
		Ledger: ledger,
		Market: host.NewMarket("market", "receipt", "uusd", ledger, sdkmath.LegacyOneDec()),
	})
	require.NoError(t, err)

	_, err = keeper.Instantiate(context.Background(), types.Env{}, types.MessageInfo{Sender: addr(t, "owner")}, types.InstantiateMsg{
		YieldMarketAddress:    addr(t, "market"),
		ReceiptAssetAddress:   addr(t, "receipt"),
		StableDenom:           "uusd",
		MinimumStableReserved: sdkmath.NewInt(-1),
	})
	require.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestDepositSchedulesRebalanceToMinimum(t *testing.T) {
	s := setup(t)

	resp, err := s.keeper.Execute(context.Background(), s.env, types.MessageInfo{
		Sender: s.owner,
		Funds:  sdk.NewCoins(sdk.NewInt64Coin("uusd", 130)),
	}, types.DepositMsg{})
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)

	msg, ok := resp.Instructions[0].Operation.(types.RebalanceMsg)
	require.True(t, ok)
	require.True(t, msg.ReservedTarget.Equal(sdkmath.NewInt(100)))
	require.Equal(t, s.env.VaultAddress, resp.Instructions[0].Contract)
}

func TestRedeemOrdersRebalanceBeforeTransfer(t *testing.T) {
	s := setup(t)
	require.NoError(t, s.ledger.Mint(s.env.VaultAddress, types.NativeAsset("uusd"), sdkmath.NewInt(500)))

	resp, err := s.keeper.Execute(context.Background(), s.env, types.MessageInfo{Sender: s.owner}, types.RedeemMsg{Amount: sdkmath.NewInt(250)})
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 2)

	rebalance := resp.Instructions[0]
	require.Equal(t, types.InstructionExecuteVault, rebalance.Type)
	require.True(t, rebalance.Operation.(types.RebalanceMsg).ReservedTarget.Equal(sdkmath.NewInt(350)))

	send := resp.Instructions[1]
	require.Equal(t, types.InstructionBankSend, send.Type)
	require.Equal(t, s.owner, send.Recipient)
	require.Equal(t, sdk.NewCoins(sdk.NewInt64Coin("uusd", 250)), send.Funds)

	value, ok := resp.Attribute("redeem:reserved_target")
	require.True(t, ok)
	require.Equal(t, "350", value)
}

func TestRedeemRejectsOverflow(t *testing.T) {
	s := setup(t)
	require.NoError(t, s.ledger.Mint(s.env.VaultAddress, types.NativeAsset("uusd"), sdkmath.NewIntFromBigInt(maxInt())))

	_, err := s.keeper.Execute(context.Background(), s.env, types.MessageInfo{Sender: s.owner}, types.RedeemMsg{Amount: sdkmath.NewIntFromBigInt(maxInt())})
	require.ErrorIs(t, err, types.ErrOverflow)
}

func TestPlanRebalanceIsADryRun(t *testing.T) {
	s := setup(t)
	require.NoError(t, s.ledger.Mint(s.env.VaultAddress, types.NativeAsset("uusd"), sdkmath.NewInt(130)))

	plan, err := s.keeper.PlanRebalance(context.Background(), s.env, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, rebalancer.DirectionDeposit, plan.Direction)
	require.True(t, plan.DepositStable.Equal(sdkmath.NewInt(30)))

	bal, err := s.ledger.Balance(context.Background(), s.env.VaultAddress, types.NativeAsset("uusd"))
	require.NoError(t, err)
	require.True(t, bal.Equal(sdkmath.NewInt(130)))
}

type unknownQuery struct{}

func (unknownQuery) QueryName() string { return "unknown" }

type unknownOp struct{}

func (unknownOp) OperationName() string { return "unknown" }

func TestUnknownRequests(t *testing.T) {
	s := setup(t)

	_, err := s.keeper.Query(context.Background(), s.env, unknownQuery{})
	require.ErrorIs(t, err, types.ErrUnknownOperation)

	_, err = s.keeper.Execute(context.Background(), s.env, types.MessageInfo{Sender: s.owner}, unknownOp{})
	require.ErrorIs(t, err, types.ErrUnknownOperation)
}
