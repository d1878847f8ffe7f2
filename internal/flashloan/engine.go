/*

This file contains the flash-loan invariant engine. A loan moves through

	Idle -> LoanRequested -> CallbackExecuting -> AssertionPending -> Idle

RequestLoan opens the loan and emits the borrower callback followed by a
self-addressed assertion. The host runs the callback, then the assertion,
which closes the loan only if the vault's stable balance is back at or above
the level it had before the funds left. A failed assertion fails the whole
chain and the host reverts the disbursement and every callback effect with it.

*/

package flashloan

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/reservevault/internal/logger"
	"github.com/elys-network/reservevault/internal/metrics"
	"github.com/elys-network/reservevault/internal/types"
)

// StableReader reads the vault's liquid stable balance.
type StableReader interface {
	StableBalance(ctx context.Context, account string) (sdkmath.Int, error)
}

// Engine issues and verifies flash loans.
type Engine struct {
	book   *Book
	logger zerolog.Logger
}

// NewEngine creates an engine that records open loans in book.
func NewEngine(book *Book) *Engine {
	return &Engine{book: book, logger: logger.GetForComponent("flashloan")}
}

// Book returns the engine's transient loan book.
func (e *Engine) Book() *Book {
	return e.book
}

// RequestLoan lends msg.Amount stable units to caller for one callback.
func (e *Engine) RequestLoan(ctx context.Context, env types.Env, caller string, cfg types.VaultConfig, reader StableReader, msg types.FlashLoanMsg) (*types.Response, error) {
	if msg.Amount.IsNil() || !msg.Amount.IsPositive() {
		return nil, errorsmod.Wrap(types.ErrInvalidAmount, "invalid loan amount")
	}
	// The callback always goes to the caller.
	if msg.Borrower != "" && msg.Borrower != caller {
		return nil, errorsmod.Wrapf(types.ErrInvalidBorrower, "borrower %s is not the caller %s", msg.Borrower, caller)
	}

	stable, err := reader.StableBalance(ctx, env.VaultAddress)
	if err != nil {
		return nil, err
	}

	resp := types.NewResponse("flashloan")

	target := stable
	if stable.LT(msg.Amount) {
		target, err = msg.Amount.SafeAdd(stable)
		if err != nil {
			return nil, errorsmod.Wrap(types.ErrOverflow, err.Error())
		}
		resp.AddInstruction(types.NewSelfCall(env.VaultAddress, types.RebalanceMsg{ReservedTarget: target}))
	}
	resp.AddAttribute("flashloan:reserved_target", target)

	loan := e.book.Open(msg.Amount, target)

	resp.AddInstruction(types.NewContractCall(caller, msg.Payload, sdk.NewCoins(sdk.NewCoin(cfg.StableDenom, msg.Amount))))
	resp.AddInstruction(types.NewSelfCall(env.VaultAddress, types.AssertRepaymentMsg{Context: loan}))

	metrics.FlashLoans.WithLabelValues("requested").Inc()
	e.logger.Info().
		Uint64("loan_id", loan.ID).
		Str("borrower", caller).
		Str("amount", msg.Amount.String()).
		Str("stable_before_exec", target.String()).
		Bool("raises_liquidity", stable.LT(msg.Amount)).
		Msg("Flash loan opened")

	return resp, nil
}

// AssertRepayment verifies the loan was restored and schedules the return to
// the minimum reserve. Only the vault may call it.
func (e *Engine) AssertRepayment(ctx context.Context, env types.Env, caller string, cfg types.VaultConfig, reader StableReader, loan types.FlashLoanContext) (*types.Response, error) {
	if caller != env.VaultAddress {
		return nil, errorsmod.Wrap(types.ErrUnauthorized, "repayment assertion can be called by vault only")
	}
	if err := e.book.Lookup(loan); err != nil {
		return nil, err
	}

	stable, err := reader.StableBalance(ctx, env.VaultAddress)
	if err != nil {
		return nil, err
	}
	if stable.LT(loan.StableBalanceBeforeExecution) {
		metrics.FlashLoans.WithLabelValues("imbalance").Inc()
		e.logger.Warn().
			Uint64("loan_id", loan.ID).
			Str("stable", stable.String()).
			Str("required", loan.StableBalanceBeforeExecution.String()).
			Msg("Flash loan not repaid")
		return nil, errorsmod.Wrapf(types.ErrImbalanceRepay, "stable balance %s below %s", stable, loan.StableBalanceBeforeExecution)
	}

	// TODO: assert a flash-loan fee once VaultConfig carries a fee rate; only a
	// non-decreasing balance is enforced today.

	if err := e.book.Close(loan); err != nil {
		return nil, err
	}

	resp := types.NewResponse("flashloan_assertion").
		AddInstruction(types.NewSelfCall(env.VaultAddress, types.RebalanceMsg{ReservedTarget: cfg.MinimumStableReserved}))

	metrics.FlashLoans.WithLabelValues("repaid").Inc()
	e.logger.Info().
		Uint64("loan_id", loan.ID).
		Str("stable", stable.String()).
		Msg("Flash loan repaid")

	return resp, nil
}
