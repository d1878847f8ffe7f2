package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultAddress is the contract address of the vault being served.
	VaultAddress string
	// VaultOwner is the vault's owner, the only account allowed to deposit and redeem.
	VaultOwner string

	// YieldMarketAddress is the money market that accepts deposits and redemptions.
	YieldMarketAddress string
	// ReceiptAssetAddress is the cw20 receipt token minted by the market.
	ReceiptAssetAddress string
	// StableDenom is the bank denom of the stable unit.
	StableDenom string
	// MinStableReserved is the liquid stable reserve the vault keeps after every operation.
	MinStableReserved sdkmath.Int
	// StableDecimals is used only to render amounts for humans. Defaults to 6.
	StableDecimals int

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string
	// WebPort is the dashboard port. Defaults to 8080.
	WebPort string
	// MonitorInterval is how often serve samples the reserve. Defaults to 1m.
	MonitorInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Vault and endpoint variables are required; the rest fall back to defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultAddress, err = getEnv("VAULT_ADDRESS")
	if err != nil {
		return err
	}

	VaultOwner, err = getEnv("VAULT_OWNER")
	if err != nil {
		return err
	}

	YieldMarketAddress, err = getEnv("YIELD_MARKET_ADDRESS")
	if err != nil {
		return err
	}

	ReceiptAssetAddress, err = getEnv("RECEIPT_ASSET_ADDRESS")
	if err != nil {
		return err
	}

	StableDenom, err = getEnv("STABLE_DENOM")
	if err != nil {
		return err
	}

	MinStableReserved, err = getEnvAsInt("MIN_STABLE_RESERVED")
	if err != nil {
		return err
	}

	decimals, err := getEnvAsUint64OrDefault("STABLE_DECIMALS", 6)
	if err != nil {
		return err
	}
	StableDecimals = int(decimals)

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	WebPort = getEnvOrDefault("WEB_PORT", "8080")

	MonitorInterval, err = time.ParseDuration(getEnvOrDefault("MONITOR_INTERVAL", "1m"))
	if err != nil || MonitorInterval <= 0 {
		return errors.New("environment variable MONITOR_INTERVAL must be a positive duration")
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("VaultAddress", VaultAddress).
		Str("StableDenom", StableDenom).
		Str("MinStableReserved", MinStableReserved.String()).
		Msg("Configuration loaded successfully.")

	return nil
}

// VaultConfig builds the validated vault config described by the environment.
func VaultConfig() (types.VaultConfig, error) {
	cfg := types.VaultConfig{
		YieldMarketAddress:    YieldMarketAddress,
		ReceiptAssetAddress:   ReceiptAssetAddress,
		StableDenom:           StableDenom,
		MinimumStableReserved: MinStableReserved,
		Owner:                 VaultOwner,
	}
	if err := cfg.Validate(); err != nil {
		return types.VaultConfig{}, err
	}
	return cfg, nil
}

// DatabaseEnabled reports whether DB_HOST is set.
func DatabaseEnabled() bool {
	return os.Getenv("DB_HOST") != ""
}

// Database returns the Postgres connection settings.
func Database() (state.DBConfig, error) {
	port, err := getEnvAsUint64OrDefault("DB_PORT", 5432)
	if err != nil {
		return state.DBConfig{}, err
	}
	return state.DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     int(port),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}, nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def when unset or empty.
func getEnvOrDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// getEnvAsUint64OrDefault retrieves an environment variable as a uint64. Returns error if set but invalid.
func getEnvAsUint64OrDefault(key string, def uint64) (uint64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return def, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as a non-negative sdkmath.Int in base units.
func getEnvAsInt(key string) (sdkmath.Int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return sdkmath.Int{}, err
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok || value.IsNegative() {
		return sdkmath.Int{}, errors.New("environment variable " + key + " must be a non-negative integer, got: " + valueStr)
	}
	return value, nil
}
