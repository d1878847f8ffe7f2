/*

This file contains the reserve monitor. On a fixed interval it samples the
vault at the latest height, publishes TVL and reserve gauges and warns when
the liquid reserve has drifted away from the configured minimum.

*/

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/metrics"
	"github.com/elys-network/reservevault/internal/rebalancer"
	"github.com/elys-network/reservevault/internal/types"
)

// Reader is the read-only view of the vault the monitor samples.
type Reader interface {
	Config(ctx context.Context) (types.VaultConfig, error)
	TotalValueLocked(ctx context.Context, env types.Env) (*types.TotalValueLockedResponse, error)
	PlanRebalance(ctx context.Context, env types.Env, target sdkmath.Int) (rebalancer.Plan, error)
}

// HeightSource returns the current block height.
type HeightSource interface {
	LatestHeight(ctx context.Context) (int64, error)
}

// Sample is the outcome of one monitor cycle.
type Sample struct {
	CycleID   string                          `json:"cycle_id"`
	Height    int64                           `json:"height"`
	TakenAt   time.Time                       `json:"taken_at"`
	TVL       *types.TotalValueLockedResponse `json:"tvl"`
	Plan      rebalancer.Plan                 `json:"plan"`
	Drifted   bool                            `json:"drifted"`
	Error     string                          `json:"error,omitempty"`
	Reference sdkmath.Int                     `json:"minimum_stable_reserved"`
}

// Monitor periodically samples the vault.
type Monitor struct {
	logger         zerolog.Logger
	vault          Reader
	heights        HeightSource
	vaultAddress   string
	stableDecimals int

	mu         sync.RWMutex
	cycleCount int
	last       *Sample
}

// Config holds the configuration for creating a new Monitor.
type Config struct {
	Vault          Reader
	Heights        HeightSource
	VaultAddress   string
	StableDecimals int
}

// New creates a monitor.
func New(cfg Config) (*Monitor, error) {
	if err := validateMonitorConfig(cfg); err != nil {
		return nil, fmt.Errorf("monitor configuration validation failed: %w", err)
	}
	return &Monitor{
		logger:         logger.GetForComponent("reserve_monitor"),
		vault:          cfg.Vault,
		heights:        cfg.Heights,
		vaultAddress:   cfg.VaultAddress,
		stableDecimals: cfg.StableDecimals,
	}, nil
}

func validateMonitorConfig(cfg Config) error {
	if cfg.Vault == nil {
		return fmt.Errorf("vault reader cannot be nil")
	}
	if cfg.Heights == nil {
		return fmt.Errorf("height source cannot be nil")
	}
	if cfg.VaultAddress == "" {
		return fmt.Errorf("vault address cannot be empty")
	}
	if cfg.StableDecimals < 0 {
		return fmt.Errorf("stable decimals cannot be negative")
	}
	return nil
}

// RunLoop samples immediately and then on every tick until ctx is done.
func (m *Monitor) RunLoop(ctx context.Context, interval time.Duration) {
	m.logger.Info().Dur("interval", interval).Msg("Starting reserve monitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Reserve monitor stopped due to context cancellation")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle takes one sample and records it as the latest.
func (m *Monitor) RunCycle(ctx context.Context) Sample {
	m.mu.Lock()
	m.cycleCount++
	cycle := m.cycleCount
	m.mu.Unlock()

	sample := Sample{CycleID: uuid.New().String(), TakenAt: time.Now().UTC()}
	cycleLogger := m.logger.With().Str("cycleID", sample.CycleID).Int("cycle", cycle).Logger()

	if err := m.sample(ctx, &sample); err != nil {
		sample.Error = err.Error()
		metrics.Samples.WithLabelValues("failed").Inc()
		cycleLogger.Error().Err(err).Msg("Reserve sample failed")
	} else if sample.Drifted {
		metrics.Samples.WithLabelValues("drift").Inc()
		cycleLogger.Warn().
			Int64("height", sample.Height).
			Str("stable", sample.TVL.StableBalance.String()).
			Str("minimum", sample.Reference.String()).
			Str("direction", string(sample.Plan.Direction)).
			Bool("clamped", sample.Plan.Clamped).
			Msg("Liquid reserve differs from the configured minimum")
	} else {
		metrics.Samples.WithLabelValues("ok").Inc()
		cycleLogger.Info().
			Int64("height", sample.Height).
			Str("tvl", sample.TVL.TVL.String()).
			Msg("Reserve sample taken")
	}

	m.mu.Lock()
	m.last = &sample
	m.mu.Unlock()
	return sample
}

func (m *Monitor) sample(ctx context.Context, s *Sample) error {
	height, err := m.heights.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block height: %w", err)
	}
	s.Height = height

	cfg, err := m.vault.Config(ctx)
	if err != nil {
		return err
	}
	s.Reference = cfg.MinimumStableReserved

	env := types.Env{BlockHeight: height, VaultAddress: m.vaultAddress}
	tvl, err := m.vault.TotalValueLocked(ctx, env)
	if err != nil {
		return err
	}
	s.TVL = tvl

	plan, err := m.vault.PlanRebalance(ctx, env, cfg.MinimumStableReserved)
	if err != nil {
		return err
	}
	s.Plan = plan
	s.Drifted = plan.Direction != rebalancer.DirectionNone

	if err := metrics.ObserveTVL(tvl.TVL, m.stableDecimals); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to publish TVL gauge")
	}
	if err := metrics.ObserveReserve(tvl.StableBalance, m.stableDecimals); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to publish reserve gauge")
	}
	return nil
}

// Last returns the most recent sample, or nil before the first cycle.
func (m *Monitor) Last() *Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

// Cycles reports how many cycles have run.
func (m *Monitor) Cycles() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cycleCount
}
