package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// Error definitions for zero-tolerance error handling
var (
	ErrDatabaseNotInitialized = errors.New("database not initialized")
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN renders the lib/pq connection string.
func (cfg DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to PostgreSQL")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

// SchemaSQL creates the config slot and the execution journal.
const SchemaSQL = `
	-- Single-row config slot, written once at instantiation
	CREATE TABLE IF NOT EXISTS vault_config (
		id INTEGER PRIMARY KEY DEFAULT 1,
		yield_market_addr TEXT NOT NULL,
		receipt_asset_addr TEXT NOT NULL,
		stable_denom TEXT NOT NULL,
		minimum_stable_reserved NUMERIC(78, 0) NOT NULL CHECK (minimum_stable_reserved >= 0),
		owner TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT single_row_check CHECK (id = 1)
	);

	CREATE TABLE IF NOT EXISTS executions (
		execution_id SERIAL PRIMARY KEY,
		chain_id UUID NOT NULL UNIQUE,
		operation VARCHAR(64) NOT NULL,
		sender TEXT NOT NULL,
		block_height BIGINT NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		success BOOLEAN NOT NULL,
		error TEXT,
		error_class VARCHAR(32),
		instructions TEXT[],
		attributes JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_executions_timestamp ON executions(executed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_executions_operation ON executions(operation);
`

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return ErrDatabaseNotInitialized
	}
	if _, err := DB.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured (vault_config, executions)")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return ErrDatabaseNotInitialized
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
