package main

import (
	"os"

	"github.com/elys-network/reservevault/internal/config"
	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger.Initialize(logLevel)
	log.Info().Msg("Starting database reset script...")

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	dbCfg, err := config.Database()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database configuration")
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer state.CloseDB()

	log.Info().Msg("Connected to database. Dropping vault tables...")

	dropTablesQuery := `
		DROP TABLE IF EXISTS executions CASCADE;
		DROP TABLE IF EXISTS vault_config CASCADE;
	`
	if _, err := state.DB.Exec(dropTablesQuery); err != nil {
		log.Fatal().Err(err).Msg("Failed to drop tables")
	}
	log.Info().Msg("Successfully dropped vault tables")

	log.Info().Msg("Recreating database schema...")
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate database schema")
	}
	log.Info().Msg("Database reset complete. Run `vaultd init-db` to store the vault config.")
}
