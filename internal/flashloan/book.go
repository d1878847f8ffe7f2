package flashloan

import (
	"sync"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/reservevault/internal/types"
)

// Book holds the flash loans opened during the current top-level chain. It
// is transient: the host resets it when the chain finishes, whether it
// committed or reverted. Loan IDs are never reused, even across resets.
type Book struct {
	mu     sync.Mutex
	nextID uint64
	open   map[uint64]types.FlashLoanContext
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{open: make(map[uint64]types.FlashLoanContext)}
}

// Open records a new loan and returns its context.
func (b *Book) Open(amount, floor sdkmath.Int) types.FlashLoanContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	loan := types.FlashLoanContext{
		ID:                           b.nextID,
		LoanAmount:                   amount,
		StableBalanceBeforeExecution: floor,
	}
	b.open[loan.ID] = loan
	return loan
}

// Lookup fails with ErrNoOpenLoan unless loan matches an open loan exactly.
func (b *Book) Lookup(loan types.FlashLoanContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lookup(loan)
}

// Close consumes the open loan matching loan.
func (b *Book) Close(loan types.FlashLoanContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lookup(loan); err != nil {
		return err
	}
	delete(b.open, loan.ID)
	return nil
}

// OpenLoans returns the number of loans awaiting their assertion.
func (b *Book) OpenLoans() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.open)
}

// Reset drops every open loan.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = make(map[uint64]types.FlashLoanContext)
}

func (b *Book) lookup(loan types.FlashLoanContext) error {
	open, ok := b.open[loan.ID]
	if !ok {
		return errorsmod.Wrapf(types.ErrNoOpenLoan, "loan %d", loan.ID)
	}
	if !open.Equal(loan) {
		return errorsmod.Wrapf(types.ErrNoOpenLoan, "loan %d does not match its recorded context", loan.ID)
	}
	return nil
}
