package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Signer configuration, needed only by commands that broadcast transactions.
// These are populated by LoadSignerConfig.
var (
	// KeyringBackend is the backend for the keyring (e.g., "os", "file", "test").
	KeyringBackend string
	// KeyringDir is the path to the keyring directory.
	KeyringDir string
	// KeyName is the name of the owner key within the keyring.
	KeyName string

	// ChainID is the chain ID of the target network.
	ChainID string

	// DefaultGasLimit is the fallback gas limit if estimation fails.
	DefaultGasLimit uint64
	// GasAdjustment is the multiplier for simulated gas to ensure sufficient fees.
	GasAdjustment float64
	// GasPriceAmount is the amount of the gas fee denomination per unit of gas.
	GasPriceAmount string
	// GasPriceDenom is the denomination for gas fees.
	GasPriceDenom string
)

// LoadSignerConfig loads keyring, chain and gas settings from the environment.
func LoadSignerConfig() error {
	var err error

	KeyringBackend = getEnvOrDefault("KEYRING_BACKEND", "test")

	KeyringDir, err = getEnv("KEYRING_DIR")
	if err != nil {
		return err
	}

	KeyName, err = getEnv("KEYRING_KEY_NAME")
	if err != nil {
		return err
	}

	ChainID, err = getEnv("CHAIN_ID")
	if err != nil {
		return err
	}

	DefaultGasLimit, err = getEnvAsUint64OrDefault("GAS_DEFAULT_LIMIT", 400000)
	if err != nil {
		return err
	}

	GasAdjustment, err = getEnvAsFloat64OrDefault("GAS_ADJUSTMENT", 1.5)
	if err != nil {
		return err
	}

	GasPriceAmount = getEnvOrDefault("GAS_PRICE_AMOUNT", "0.0025")
	GasPriceDenom = getEnvOrDefault("GAS_PRICE_DENOM", "uelys")

	// Expand the tilde (~) in the keyring directory path to the user's home directory.
	if strings.HasPrefix(KeyringDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		KeyringDir = filepath.Join(home, KeyringDir[2:])
	}

	log.Debug().
		Str("ChainID", ChainID).
		Str("KeyName", KeyName).
		Str("KeyringBackend", KeyringBackend).
		Msg("Signer configuration loaded successfully.")

	return nil
}

// GasPrice renders the configured gas price as a DecCoin string.
func GasPrice() string {
	return GasPriceAmount + GasPriceDenom
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if set but invalid.
func getEnvAsFloat64OrDefault(key string, def float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}
