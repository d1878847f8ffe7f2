package types

import (
	sdkmath "cosmossdk.io/math"
)

// FlashLoanContext is the transient record of one open flash loan. It is
// created right before the borrower callback is scheduled and consumed by the
// single AssertRepayment that follows it.
type FlashLoanContext struct {
	ID                           uint64      `json:"id"`
	LoanAmount                   sdkmath.Int `json:"loan_amount"`
	StableBalanceBeforeExecution sdkmath.Int `json:"stable_before_exec"`
}

// Equal reports whether two contexts describe the same loan.
func (c FlashLoanContext) Equal(o FlashLoanContext) bool {
	if c.ID != o.ID {
		return false
	}
	if c.LoanAmount.IsNil() || o.LoanAmount.IsNil() || c.StableBalanceBeforeExecution.IsNil() || o.StableBalanceBeforeExecution.IsNil() {
		return false
	}
	return c.LoanAmount.Equal(o.LoanAmount) && c.StableBalanceBeforeExecution.Equal(o.StableBalanceBeforeExecution)
}
