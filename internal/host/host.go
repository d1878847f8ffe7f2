/*

This file contains the in-process execution host. It plays the role the chain
plays for a deployed vault: it delivers one top-level operation, then runs the
returned instructions depth-first (a nested call's own instructions run
before the next sibling) and atomically. Any failure anywhere in the chain
restores the ledger, the market and the config slot to their state before the
chain started and returns the error unchanged.

*/

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/metrics"
	"github.com/elys-network/reservevault/internal/state"
	"github.com/elys-network/reservevault/internal/types"
	"github.com/elys-network/reservevault/internal/vault"
)

// Config holds the dependencies for creating a new Host
type Config struct {
	VaultAddress string
	Height       int64
	Ledger       *MemLedger
	Market       *Market
	Store        state.ConfigStore // in-memory slot when nil
	Journal      state.Journal     // optional
	Now          func() time.Time  // time.Now when nil
}

// Host executes vault operations against an in-memory ledger and market.
type Host struct {
	mu        sync.Mutex
	vaultAddr string
	height    int64
	ledger    *MemLedger
	market    *Market
	store     state.ConfigStore
	journal   state.Journal
	keeper    *vault.Keeper
	contracts map[string]Contract
	now       func() time.Time
	logger    zerolog.Logger
}

// ChainResult describes a committed chain.
type ChainResult struct {
	ChainID      string
	Instructions []types.Instruction // every instruction executed, in order
	Attributes   []types.Attribute
}

// New creates a host.
func New(cfg Config) (*Host, error) {
	if cfg.VaultAddress == "" {
		return nil, errors.New("vault address is required")
	}
	if cfg.Ledger == nil || cfg.Market == nil {
		return nil, errors.New("ledger and market are required")
	}
	store := cfg.Store
	if store == nil {
		store = state.NewMemoryConfigStore()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	keeper, err := vault.NewKeeper(vault.Config{Store: store, Ledger: cfg.Ledger, Market: cfg.Market})
	if err != nil {
		return nil, err
	}

	return &Host{
		vaultAddr: cfg.VaultAddress,
		height:    cfg.Height,
		ledger:    cfg.Ledger,
		market:    cfg.Market,
		store:     store,
		journal:   cfg.Journal,
		keeper:    keeper,
		contracts: make(map[string]Contract),
		now:       now,
		logger:    logger.GetForComponent("host"),
	}, nil
}

func (h *Host) VaultAddress() string   { return h.vaultAddr }
func (h *Host) Ledger() *MemLedger     { return h.ledger }
func (h *Host) Market() *Market        { return h.market }
func (h *Host) Keeper() *vault.Keeper  { return h.keeper }
func (h *Host) Journal() state.Journal { return h.journal }

// Height returns the current block height.
func (h *Host) Height() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.height
}

// AdvanceBlock moves the block height forward by n.
func (h *Host) AdvanceBlock(n int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.height += n
}

// RegisterContract makes c callable at addr.
func (h *Host) RegisterContract(addr string, c Contract) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contracts[addr] = c
}

// Instantiate creates the vault config with sender as owner.
func (h *Host) Instantiate(ctx context.Context, sender string, msg types.InstantiateMsg) (*ChainResult, error) {
	return h.Execute(ctx, sender, nil, msg)
}

// Query answers q at the current height.
func (h *Host) Query(ctx context.Context, q types.Query) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keeper.Query(ctx, h.env(), q)
}

// Execute delivers op from sender with funds attached and runs the resulting
// chain. Top-level messages are serialized.
func (h *Host) Execute(ctx context.Context, sender string, funds sdk.Coins, op types.Operation) (*ChainResult, error) {
	if op == nil {
		return nil, errorsmod.Wrap(types.ErrUnknownOperation, "nil operation")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &chain{id: uuid.NewString()}
	log := h.logger.With().Str("chain_id", c.id).Str("operation", op.OperationName()).Logger()
	log.Debug().Str("sender", sender).Str("funds", funds.String()).Int64("height", h.height).Msg("Chain started")

	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	err = h.deliver(ctx, c, sender, funds, op)
	// loans never outlive the chain that opened them
	h.keeper.Loans().Reset()

	if err != nil {
		if rerr := h.restore(ctx, snap); rerr != nil {
			log.Error().Err(rerr).Msg("Failed to restore state after revert")
		}
		class := types.Classify(err)
		metrics.Chains.WithLabelValues(op.OperationName(), "reverted").Inc()
		metrics.Errors.WithLabelValues(string(class)).Inc()
		log.Error().Err(err).Str("class", string(class)).Int("instructions", len(c.executed)).Msg("Chain reverted")
		h.record(ctx, c, sender, op, err)
		return nil, err
	}

	metrics.Chains.WithLabelValues(op.OperationName(), "committed").Inc()
	log.Info().Int("instructions", len(c.executed)).Msg("Chain committed")
	h.record(ctx, c, sender, op, nil)

	return &ChainResult{ChainID: c.id, Instructions: c.executed, Attributes: c.attributes}, nil
}

type chain struct {
	id         string
	executed   []types.Instruction
	attributes []types.Attribute
}

func (h *Host) env() types.Env {
	return types.Env{BlockHeight: h.height, VaultAddress: h.vaultAddr}
}

// deliver runs op against the vault and then its instructions.
func (h *Host) deliver(ctx context.Context, c *chain, sender string, funds sdk.Coins, op types.Operation) error {
	if err := h.ledger.TransferCoins(sender, h.vaultAddr, funds); err != nil {
		return err
	}
	resp, err := h.keeper.Execute(ctx, h.env(), types.MessageInfo{Sender: sender, Funds: funds}, op)
	if err != nil {
		return err
	}
	return h.run(ctx, c, h.vaultAddr, resp)
}

// run executes resp's instructions in order with actor as their sender.
func (h *Host) run(ctx context.Context, c *chain, actor string, resp *types.Response) error {
	if resp == nil {
		return nil
	}
	c.attributes = append(c.attributes, resp.Attributes...)
	for _, in := range resp.Instructions {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.executed = append(c.executed, in)
		metrics.Instructions.WithLabelValues(string(in.Type)).Inc()
		if err := h.step(ctx, c, actor, in); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) step(ctx context.Context, c *chain, actor string, in types.Instruction) error {
	switch in.Type {
	case types.InstructionBankSend:
		return h.ledger.TransferCoins(actor, in.Recipient, in.Funds)

	case types.InstructionYieldDeposit:
		if in.Contract != h.market.Address() {
			return errorsmod.Wrapf(types.ErrContractNotFound, "no yield market at %s", in.Contract)
		}
		if err := h.ledger.TransferCoins(actor, in.Contract, in.Funds); err != nil {
			return err
		}
		for _, coin := range in.Funds {
			if _, err := h.market.Deposit(ctx, h.height, actor, coin); err != nil {
				return err
			}
		}
		return nil

	case types.InstructionReceiptSend:
		if in.Contract != h.market.ReceiptToken() {
			return errorsmod.Wrapf(types.ErrContractNotFound, "no receipt token at %s", in.Contract)
		}
		if in.HookContract != h.market.Address() {
			return errorsmod.Wrapf(types.ErrContractNotFound, "no yield market at %s", in.HookContract)
		}
		if in.Hook != types.HookRedeemStable {
			return errorsmod.Wrapf(types.ErrUnknownOperation, "receipt hook %q", in.Hook)
		}
		if err := h.ledger.Transfer(actor, in.HookContract, types.CW20Asset(in.Contract), in.Amount); err != nil {
			return err
		}
		_, err := h.market.Redeem(ctx, h.height, actor, in.Amount)
		return err

	case types.InstructionExecuteVault:
		if in.Contract != h.vaultAddr {
			return errorsmod.Wrapf(types.ErrContractNotFound, "no vault at %s", in.Contract)
		}
		if in.Operation == nil {
			return errorsmod.Wrap(types.ErrUnknownOperation, "nil operation")
		}
		if err := h.ledger.TransferCoins(actor, h.vaultAddr, in.Funds); err != nil {
			return err
		}
		resp, err := h.keeper.Execute(ctx, h.env(), types.MessageInfo{Sender: actor, Funds: in.Funds}, in.Operation)
		if err != nil {
			return err
		}
		return h.run(ctx, c, h.vaultAddr, resp)

	case types.InstructionExecuteContract:
		contract, ok := h.contracts[in.Contract]
		if !ok {
			return errorsmod.Wrapf(types.ErrContractNotFound, "no contract at %s", in.Contract)
		}
		if err := h.ledger.TransferCoins(actor, in.Contract, in.Funds); err != nil {
			return err
		}
		resp, err := contract.Execute(ctx, h.env(), types.MessageInfo{Sender: actor, Funds: in.Funds}, in.Payload)
		if err != nil {
			return err
		}
		return h.run(ctx, c, in.Contract, resp)

	default:
		return errorsmod.Wrapf(types.ErrUnknownOperation, "instruction type %q", in.Type)
	}
}

type hostSnapshot struct {
	ledger    ledgerSnapshot
	market    marketSnapshot
	config    types.VaultConfig
	hasConfig bool
}

func (h *Host) snapshot(ctx context.Context) (hostSnapshot, error) {
	snap := hostSnapshot{ledger: h.ledger.snapshot(), market: h.market.snapshot()}
	cfg, err := h.store.LoadConfig(ctx)
	switch {
	case err == nil:
		snap.config, snap.hasConfig = cfg, true
	case !errors.Is(err, types.ErrConfigNotFound):
		return hostSnapshot{}, fmt.Errorf("failed to snapshot config slot: %w", err)
	}
	return snap, nil
}

func (h *Host) restore(ctx context.Context, snap hostSnapshot) error {
	h.ledger.restore(snap.ledger)
	h.market.restore(snap.market)
	if snap.hasConfig {
		return h.store.SaveConfig(ctx, snap.config)
	}
	return h.store.ResetConfig(ctx)
}

func (h *Host) record(ctx context.Context, c *chain, sender string, op types.Operation, chainErr error) {
	if h.journal == nil {
		return
	}
	rec := types.ExecutionRecord{
		ChainID:      c.id,
		Operation:    op.OperationName(),
		Sender:       sender,
		Height:       h.height,
		Timestamp:    h.now().UTC(),
		Success:      chainErr == nil,
		Instructions: make([]string, 0, len(c.executed)),
		Attributes:   c.attributes,
	}
	for _, in := range c.executed {
		rec.Instructions = append(rec.Instructions, in.String())
	}
	if chainErr != nil {
		rec.Error = chainErr.Error()
		rec.ErrorClass = types.Classify(chainErr)
	}
	if err := h.journal.SaveExecution(ctx, rec); err != nil {
		h.logger.Error().Err(err).Str("chain_id", c.id).Msg("Failed to journal execution")
	}
}
