/*

This file manages the vault's config slot. The slot holds exactly one
VaultConfig, written at instantiation and read at the start of every
operation. The Postgres store keeps it in a single-row table so the slot
survives restarts.

*/

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/reservevault/internal/types"
)

// ConfigStore is the host's fixed config slot.
type ConfigStore interface {
	LoadConfig(ctx context.Context) (types.VaultConfig, error)
	SaveConfig(ctx context.Context, cfg types.VaultConfig) error
	// ResetConfig empties the slot. Used for rollback and maintenance only.
	ResetConfig(ctx context.Context) error
}

// MemoryConfigStore is an in-process config slot.
type MemoryConfigStore struct {
	mu  sync.RWMutex
	cfg *types.VaultConfig
}

// NewMemoryConfigStore returns an empty slot.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{}
}

func (s *MemoryConfigStore) LoadConfig(_ context.Context) (types.VaultConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return types.VaultConfig{}, types.ErrConfigNotFound
	}
	return *s.cfg, nil
}

func (s *MemoryConfigStore) SaveConfig(_ context.Context, cfg types.VaultConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &cfg
	return nil
}

func (s *MemoryConfigStore) ResetConfig(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
	return nil
}

// PostgresConfigStore keeps the slot in the vault_config table.
type PostgresConfigStore struct {
	db *sql.DB
}

// NewPostgresConfigStore binds the store to db, falling back to the global pool.
func NewPostgresConfigStore(db *sql.DB) *PostgresConfigStore {
	if db == nil {
		db = DB
	}
	return &PostgresConfigStore{db: db}
}

func (s *PostgresConfigStore) LoadConfig(ctx context.Context) (types.VaultConfig, error) {
	if s.db == nil {
		return types.VaultConfig{}, ErrDatabaseNotInitialized
	}

	query := `
		SELECT yield_market_addr, receipt_asset_addr, stable_denom, minimum_stable_reserved::TEXT, owner
		FROM vault_config
		WHERE id = 1;`

	var cfg types.VaultConfig
	var minimum string
	err := s.db.QueryRowContext(ctx, query).Scan(
		&cfg.YieldMarketAddress, &cfg.ReceiptAssetAddress, &cfg.StableDenom, &minimum, &cfg.Owner,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.VaultConfig{}, types.ErrConfigNotFound
		}
		return types.VaultConfig{}, fmt.Errorf("failed to load vault config: %w", err)
	}

	var ok bool
	cfg.MinimumStableReserved, ok = sdkmath.NewIntFromString(minimum)
	if !ok {
		return types.VaultConfig{}, fmt.Errorf("failed to parse minimum_stable_reserved %q", minimum)
	}

	log.Debug().Str("owner", cfg.Owner).Str("minimum", minimum).Msg("Loaded vault config")
	return cfg, nil
}

func (s *PostgresConfigStore) SaveConfig(ctx context.Context, cfg types.VaultConfig) error {
	if s.db == nil {
		return ErrDatabaseNotInitialized
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	upsert := `
		INSERT INTO vault_config (id, yield_market_addr, receipt_asset_addr, stable_denom, minimum_stable_reserved, owner, updated_at)
		VALUES (1, $1, $2, $3, $4::NUMERIC, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			yield_market_addr = EXCLUDED.yield_market_addr,
			receipt_asset_addr = EXCLUDED.receipt_asset_addr,
			stable_denom = EXCLUDED.stable_denom,
			minimum_stable_reserved = EXCLUDED.minimum_stable_reserved,
			owner = EXCLUDED.owner,
			updated_at = CURRENT_TIMESTAMP;`

	_, err := s.db.ExecContext(ctx, upsert,
		cfg.YieldMarketAddress, cfg.ReceiptAssetAddress, cfg.StableDenom, cfg.MinimumStableReserved.String(), cfg.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to save vault config: %w", err)
	}

	log.Info().Str("owner", cfg.Owner).Str("stable_denom", cfg.StableDenom).Msg("Saved vault config")
	return nil
}

func (s *PostgresConfigStore) ResetConfig(ctx context.Context) error {
	if s.db == nil {
		return ErrDatabaseNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vault_config WHERE id = 1;`); err != nil {
		return fmt.Errorf("failed to reset vault config: %w", err)
	}
	log.Warn().Msg("Reset vault config slot")
	return nil
}
