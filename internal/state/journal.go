/*

This file contains the execution journal: one record per top-level
instruction chain, committed or reverted, plus the aggregate summary served
by the dashboard.

*/

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/elys-network/reservevault/internal/types"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ExecutionSummary represents aggregate journal statistics
type ExecutionSummary struct {
	TotalChains    int                      `json:"total_chains"`
	Committed      int                      `json:"committed"`
	Reverted       int                      `json:"reverted"`
	ErrorsByClass  map[types.ErrorClass]int `json:"errors_by_class"`
	LastExecutedAt string                   `json:"last_executed_at,omitempty"`
}

// Journal records executed chains.
type Journal interface {
	SaveExecution(ctx context.Context, rec types.ExecutionRecord) error
	RecentExecutions(ctx context.Context, limit int) ([]types.ExecutionRecord, error)
	Summary(ctx context.Context) (*ExecutionSummary, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// MemoryJournal keeps records in process, newest last.
type MemoryJournal struct {
	mu      sync.RWMutex
	records []types.ExecutionRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) SaveExecution(_ context.Context, rec types.ExecutionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

// RecentExecutions returns up to limit records, newest first.
func (j *MemoryJournal) RecentExecutions(_ context.Context, limit int) ([]types.ExecutionRecord, error) {
	limit = normalizeLimit(limit)
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]types.ExecutionRecord, 0, limit)
	for i := len(j.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}

func (j *MemoryJournal) Summary(_ context.Context) (*ExecutionSummary, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	summary := &ExecutionSummary{ErrorsByClass: map[types.ErrorClass]int{}}
	for _, rec := range j.records {
		summary.TotalChains++
		if rec.Success {
			summary.Committed++
		} else {
			summary.Reverted++
			summary.ErrorsByClass[rec.ErrorClass]++
		}
	}
	if n := len(j.records); n > 0 {
		summary.LastExecutedAt = j.records[n-1].Timestamp.UTC().Format(time.RFC3339)
	}
	return summary, nil
}

// PostgresJournal stores records in the executions table.
type PostgresJournal struct {
	db *sql.DB
}

// NewPostgresJournal binds the journal to db, falling back to the global pool.
func NewPostgresJournal(db *sql.DB) *PostgresJournal {
	if db == nil {
		db = DB
	}
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) SaveExecution(ctx context.Context, rec types.ExecutionRecord) error {
	if j.db == nil {
		return ErrDatabaseNotInitialized
	}

	attributesJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	query := `
		INSERT INTO executions (
			chain_id, operation, sender, block_height, executed_at,
			success, error, error_class, instructions, attributes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err = j.db.ExecContext(ctx, query,
		rec.ChainID, rec.Operation, rec.Sender, rec.Height, rec.Timestamp,
		rec.Success, nullString(rec.Error), nullString(string(rec.ErrorClass)),
		pq.Array(rec.Instructions), attributesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", rec.ChainID, err)
	}

	log.Debug().Str("chain_id", rec.ChainID).Str("operation", rec.Operation).Bool("success", rec.Success).Msg("Execution journaled")
	return nil
}

func (j *PostgresJournal) RecentExecutions(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	if j.db == nil {
		return nil, ErrDatabaseNotInitialized
	}
	limit = normalizeLimit(limit)

	query := `
		SELECT
			chain_id, operation, sender, block_height, executed_at,
			success, error, error_class, instructions, attributes
		FROM executions
		ORDER BY executed_at DESC, execution_id DESC
		LIMIT $1`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}
	defer rows.Close()

	var records []types.ExecutionRecord
	for rows.Next() {
		var rec types.ExecutionRecord
		var errMsg, errClass sql.NullString
		var attributesJSON []byte

		err := rows.Scan(
			&rec.ChainID, &rec.Operation, &rec.Sender, &rec.Height, &rec.Timestamp,
			&rec.Success, &errMsg, &errClass, pq.Array(&rec.Instructions), &attributesJSON,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan execution row")
			continue
		}
		rec.Error = errMsg.String
		rec.ErrorClass = types.ErrorClass(errClass.String)
		if len(attributesJSON) > 0 {
			if err := json.Unmarshal(attributesJSON, &rec.Attributes); err != nil {
				log.Error().Err(err).Str("chain_id", rec.ChainID).Msg("Failed to unmarshal execution attributes")
				continue
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

func (j *PostgresJournal) Summary(ctx context.Context) (*ExecutionSummary, error) {
	if j.db == nil {
		return nil, ErrDatabaseNotInitialized
	}

	summary := &ExecutionSummary{ErrorsByClass: map[types.ErrorClass]int{}}
	var last sql.NullString
	err := j.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN success THEN 1 END),
			COUNT(CASE WHEN NOT success THEN 1 END),
			MAX(executed_at)::TEXT
		FROM executions`).Scan(&summary.TotalChains, &summary.Committed, &summary.Reverted, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution summary: %w", err)
	}
	summary.LastExecutedAt = last.String

	rows, err := j.db.QueryContext(ctx, `
		SELECT error_class, COUNT(*)
		FROM executions
		WHERE NOT success
		GROUP BY error_class`)
	if err != nil {
		return nil, fmt.Errorf("failed to get errors by class: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var class sql.NullString
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("failed to scan error class row: %w", err)
		}
		summary.ErrorsByClass[types.ErrorClass(class.String)] = count
	}
	return summary, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
