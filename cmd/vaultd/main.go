package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/elys-network/reservevault/internal/chain"
	"github.com/elys-network/reservevault/internal/config"
	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/monitor"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
	"github.com/elys-network/reservevault/internal/utils"
	"github.com/elys-network/reservevault/internal/vault"
	"github.com/elys-network/reservevault/internal/wallet"
	"github.com/elys-network/reservevault/internal/web"
)

const queryTimeout = 30 * time.Second

// main is the entry point for the vaultd CLI.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("vaultd failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultd",
		Short:         "Reserve vault treasury controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
			}
			if err := config.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Initialize(config.LogLevel)
			return nil
		},
	}
	root.AddCommand(newServeCmd(), newTVLCmd(), newPlanCmd(), newInitDBCmd(), newDepositCmd(), newRedeemCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only dashboard and metrics against the live chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := web.Options{
				Port:           config.WebPort,
				VaultAddress:   config.VaultAddress,
				StableDecimals: config.StableDecimals,
				Vault:          rt.keeper,
				Heights:        rt.heights,
			}
			if rt.journal != nil {
				opts.Journal = rt.journal
				opts.DBCheck = state.TestDBConnection
			}

			mon, err := monitor.New(monitor.Config{
				Vault:          rt.keeper,
				Heights:        rt.heights,
				VaultAddress:   config.VaultAddress,
				StableDecimals: config.StableDecimals,
			})
			if err != nil {
				return err
			}
			opts.Monitor = mon

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go mon.RunLoop(ctx, config.MonitorInterval)

			log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting vault dashboard")
			return web.NewWebServer(opts).Start(ctx)
		},
	}
}

func newTVLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tvl",
		Short: "Print the vault's total value locked at the latest height",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()

			rt, err := openRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			env, err := rt.env(ctx)
			if err != nil {
				return err
			}
			tvl, err := rt.keeper.TotalValueLocked(ctx, env)
			if err != nil {
				return err
			}

			log.Info().
				Int64("height", tvl.Height).
				Str("tvl", utils.FormatAmount(tvl.TVL, config.StableDecimals)).
				Str("exchange_rate", tvl.ExchangeRate.String()).
				Msg("Total value locked")
			return printJSON(cmd, tvl)
		},
	}
}

func newPlanCmd() *cobra.Command {
	var display bool
	cmd := &cobra.Command{
		Use:   "plan [target]",
		Short: "Dry-run a rebalance to target (defaults to the minimum reserve)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
			defer cancel()

			rt, err := openRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			target := config.MinStableReserved
			if len(args) == 1 {
				if target, err = parseAmountArg(args[0], display); err != nil {
					return err
				}
			}

			env, err := rt.env(ctx)
			if err != nil {
				return err
			}
			plan, err := rt.keeper.PlanRebalance(ctx, env, target)
			if err != nil {
				return err
			}
			return printJSON(cmd, plan)
		},
	}
	cmd.Flags().BoolVar(&display, "display", false, "target is given in display units instead of base units")
	return cmd
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and store the vault config from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.VaultConfig()
			if err != nil {
				return err
			}
			dbCfg, err := config.Database()
			if err != nil {
				return err
			}
			if err := state.InitDB(dbCfg); err != nil {
				return err
			}
			defer state.CloseDB()
			if err := state.EnsureSchema(); err != nil {
				return err
			}
			return state.NewPostgresConfigStore(state.DB).SaveConfig(cmd.Context(), cfg)
		},
	}
}

func newDepositCmd() *cobra.Command {
	var display bool
	cmd := &cobra.Command{
		Use:   "deposit [amount]",
		Short: "Sign and broadcast a deposit of stable funds to the vault as owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0], display)
			if err != nil {
				return err
			}
			return withExecutor(cmd, func(ctx context.Context, exec *wallet.VaultExecutor) (*sdk.TxResponse, error) {
				return exec.Deposit(ctx, sdk.NewCoin(config.StableDenom, amount))
			})
		},
	}
	cmd.Flags().BoolVar(&display, "display", false, "amount is given in display units instead of base units")
	return cmd
}

func newRedeemCmd() *cobra.Command {
	var display bool
	cmd := &cobra.Command{
		Use:   "redeem [amount]",
		Short: "Sign and broadcast a redemption of stable funds to the owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmountArg(args[0], display)
			if err != nil {
				return err
			}
			return withExecutor(cmd, func(ctx context.Context, exec *wallet.VaultExecutor) (*sdk.TxResponse, error) {
				return exec.Redeem(ctx, amount)
			})
		},
	}
	cmd.Flags().BoolVar(&display, "display", false, "amount is given in display units instead of base units")
	return cmd
}

func withExecutor(cmd *cobra.Command, submit func(context.Context, *wallet.VaultExecutor) (*sdk.TxResponse, error)) error {
	if err := config.LoadSignerConfig(); err != nil {
		return fmt.Errorf("failed to load signer configuration: %w", err)
	}

	conn, err := chain.Dial(config.NodeGRPC)
	if err != nil {
		return err
	}
	defer conn.Close()

	signer, err := wallet.NewSigningClient(conn)
	if err != nil {
		return err
	}
	if signer.Address() != config.VaultOwner {
		log.Warn().Str("signer", signer.Address()).Str("owner", config.VaultOwner).Msg("Signer is not the configured vault owner; the vault will reject the operation")
	}

	exec, err := wallet.NewVaultExecutor(signer, config.VaultAddress)
	if err != nil {
		return err
	}
	if config.DatabaseEnabled() {
		dbCfg, err := config.Database()
		if err != nil {
			return err
		}
		if err := state.InitDB(dbCfg); err != nil {
			return err
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			return err
		}
		exec.WithJournal(state.NewPostgresJournal(state.DB))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout)
	defer cancel()

	res, err := submit(ctx, exec)
	if err != nil {
		return err
	}
	log.Info().Str("txHash", res.TxHash).Int64("height", res.Height).Msg("Vault operation submitted")
	return printJSON(cmd, map[string]interface{}{"tx_hash": res.TxHash, "code": res.Code})
}

func parseAmountArg(arg string, display bool) (sdkmath.Int, error) {
	var (
		amount sdkmath.Int
		err    error
	)
	if display {
		amount, err = utils.ParseDisplayAmount(arg, config.StableDecimals)
	} else {
		amount, err = utils.ParseAmount(arg)
	}
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount, nil
}

// runtime wires the keeper to the live chain.
type runtime struct {
	conn    *grpc.ClientConn
	keeper  *vault.Keeper
	heights *chain.HeightClient
	journal state.Journal
}

func openRuntime(ctx context.Context, withJournal bool) (rt *runtime, err error) {
	store, err := openConfigStore(ctx)
	if err != nil {
		state.CloseDB()
		return nil, err
	}
	defer func() {
		if err != nil {
			state.CloseDB()
		}
	}()

	cfg, err := store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := chain.Dial(config.NodeGRPC)
	if err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", config.NodeGRPC).Msg("gRPC connected")

	heights, err := chain.NewHeightClient(config.NodeRPC)
	if err != nil {
		conn.Close()
		return nil, err
	}

	keeper, err := vault.NewKeeper(vault.Config{
		Store:  store,
		Ledger: chain.NewLedgerClient(conn),
		Market: chain.NewMarketClient(conn, cfg.YieldMarketAddress),
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	rt = &runtime{conn: conn, keeper: keeper, heights: heights}
	if withJournal && state.DB != nil {
		rt.journal = state.NewPostgresJournal(state.DB)
	}
	return rt, nil
}

// openConfigStore uses the Postgres slot when DB_HOST is set and the
// environment otherwise.
func openConfigStore(ctx context.Context) (state.ConfigStore, error) {
	envCfg, err := config.VaultConfig()
	if err != nil {
		return nil, err
	}

	if !config.DatabaseEnabled() {
		store := state.NewMemoryConfigStore()
		return store, store.SaveConfig(ctx, envCfg)
	}

	dbCfg, err := config.Database()
	if err != nil {
		return nil, err
	}
	if err := state.InitDB(dbCfg); err != nil {
		return nil, err
	}
	if err := state.EnsureSchema(); err != nil {
		return nil, err
	}
	store := state.NewPostgresConfigStore(state.DB)
	if _, err := store.LoadConfig(ctx); errors.Is(err, types.ErrConfigNotFound) {
		log.Warn().Msg("Vault config slot empty, storing config from environment")
		if err := store.SaveConfig(ctx, envCfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return store, nil
}

func (rt *runtime) env(ctx context.Context) (types.Env, error) {
	height, err := rt.heights.LatestHeight(ctx)
	if err != nil {
		return types.Env{}, err
	}
	return types.Env{BlockHeight: height, VaultAddress: config.VaultAddress}, nil
}

func (rt *runtime) Close() {
	if err := rt.conn.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing gRPC connection")
	}
	state.CloseDB()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
