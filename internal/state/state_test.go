package state_test

import (
	"context"
	"os"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/types/bech32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

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

func testConfig(t *testing.T) types.VaultConfig {
	return types.VaultConfig{
		YieldMarketAddress:    addr(t, "market"),
		ReceiptAssetAddress:   addr(t, "receipt"),
		StableDenom:           "uusdc",
		MinimumStableReserved: sdkmath.NewInt(250),
		Owner:                 addr(t, "owner"),
	}
}

func record(op string, success bool, class types.ErrorClass) types.ExecutionRecord {
	rec := types.ExecutionRecord{
		ChainID:      uuid.NewString(),
		Operation:    op,
		Sender:       "sender",
		Height:       7,
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		Success:      success,
		Instructions: []string{"EXECUTE_VAULT rebalance"},
		Attributes:   []types.Attribute{{Key: "action", Value: op}},
	}
	if !success {
		rec.Error = "failed"
		rec.ErrorClass = class
	}
	return rec
}

func TestMemoryConfigStore(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryConfigStore()

	_, err := store.LoadConfig(ctx)
	require.ErrorIs(t, err, types.ErrConfigNotFound)

	cfg := testConfig(t)
	require.NoError(t, store.SaveConfig(ctx, cfg))
	got, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	require.NoError(t, store.ResetConfig(ctx))
	_, err = store.LoadConfig(ctx)
	require.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestMemoryJournal(t *testing.T) {
	ctx := context.Background()
	journal := state.NewMemoryJournal()

	require.NoError(t, journal.SaveExecution(ctx, record("deposit", true, types.ClassNone)))
	require.NoError(t, journal.SaveExecution(ctx, record("flashloan", false, types.ClassInvariant)))
	require.NoError(t, journal.SaveExecution(ctx, record("rebalance", false, types.ClassAuthorization)))

	recent, err := journal.RecentExecutions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "rebalance", recent[0].Operation)
	require.Equal(t, "flashloan", recent[1].Operation)

	all, err := journal.RecentExecutions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	summary, err := journal.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalChains)
	require.Equal(t, 1, summary.Committed)
	require.Equal(t, 2, summary.Reverted)
	require.Equal(t, 1, summary.ErrorsByClass[types.ClassInvariant])
	require.Equal(t, 1, summary.ErrorsByClass[types.ClassAuthorization])
	require.NotEmpty(t, summary.LastExecutedAt)
}

func TestPostgresStoresRequireDB(t *testing.T) {
	ctx := context.Background()
	_, err := (&state.PostgresConfigStore{}).LoadConfig(ctx)
	require.ErrorIs(t, err, state.ErrDatabaseNotInitialized)
	_, err = (&state.PostgresJournal{}).RecentExecutions(ctx, 5)
	require.ErrorIs(t, err, state.ErrDatabaseNotInitialized)
}

// TestPostgresRoundTrip runs against a real database when RESERVEVAULT_TEST_DB
// holds a lib/pq connection string.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("RESERVEVAULT_TEST_DB")
	if dsn == "" {
		t.Skip("RESERVEVAULT_TEST_DB not set")
	}
	ctx := context.Background()

	db, err := openTestDB(dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(state.SchemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE executions; DELETE FROM vault_config;`)
	require.NoError(t, err)

	store := state.NewPostgresConfigStore(db)
	_, err = store.LoadConfig(ctx)
	require.ErrorIs(t, err, types.ErrConfigNotFound)

	cfg := testConfig(t)
	require.NoError(t, store.SaveConfig(ctx, cfg))
	got, err := store.LoadConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg.Owner, got.Owner)
	require.True(t, cfg.MinimumStableReserved.Equal(got.MinimumStableReserved))

	journal := state.NewPostgresJournal(db)
	require.NoError(t, journal.SaveExecution(ctx, record("deposit", true, types.ClassNone)))
	require.NoError(t, journal.SaveExecution(ctx, record("redeem", false, types.ClassValidation)))

	recent, err := journal.RecentExecutions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	summary, err := journal.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalChains)
	require.Equal(t, 1, summary.ErrorsByClass[types.ClassValidation])
}
