package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the codespace all vault errors are registered under.
const ModuleName = "reservevault"

// Authorization
var (
	ErrUnauthorized = errorsmod.Register(ModuleName, 2, "unauthorized")
)

// Validation
var (
	ErrInvalidAmount       = errorsmod.Register(ModuleName, 10, "invalid amount")
	ErrInvalidFunds        = errorsmod.Register(ModuleName, 11, "invalid deposit denom or amount")
	ErrInsufficientBalance = errorsmod.Register(ModuleName, 12, "insufficient balance")
	ErrInvalidBorrower     = errorsmod.Register(ModuleName, 13, "invalid borrower")
	ErrInvalidConfig       = errorsmod.Register(ModuleName, 14, "invalid vault config")
	ErrUnknownOperation    = errorsmod.Register(ModuleName, 15, "unknown operation")
	ErrInvalidExchangeRate = errorsmod.Register(ModuleName, 16, "invalid exchange rate")
)

// Invariant violation
var (
	ErrImbalanceRepay = errorsmod.Register(ModuleName, 20, "imbalance repay")
	ErrNoOpenLoan     = errorsmod.Register(ModuleName, 21, "no matching open flash loan")
)

// External dependency failure
var (
	ErrExchangeRateQuery = errorsmod.Register(ModuleName, 30, "exchange rate query failed")
	ErrBalanceQuery      = errorsmod.Register(ModuleName, 31, "balance query failed")
	ErrOverflow          = errorsmod.Register(ModuleName, 32, "arithmetic overflow")
	ErrContractNotFound  = errorsmod.Register(ModuleName, 33, "contract not found")
	ErrConfigNotFound    = errorsmod.Register(ModuleName, 34, "vault config not found")
)

// ErrorClass groups errors into the four failure classes reported to callers.
type ErrorClass string

const (
	ClassNone          ErrorClass = "none"
	ClassAuthorization ErrorClass = "authorization"
	ClassValidation    ErrorClass = "validation"
	ClassInvariant     ErrorClass = "invariant_violation"
	ClassExternal      ErrorClass = "external_dependency"
)

var errorClasses = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassAuthorization, []error{ErrUnauthorized}},
	{ClassValidation, []error{ErrInvalidAmount, ErrInvalidFunds, ErrInsufficientBalance, ErrInvalidBorrower, ErrInvalidConfig, ErrUnknownOperation, ErrInvalidExchangeRate}},
	{ClassInvariant, []error{ErrImbalanceRepay, ErrNoOpenLoan}},
}

// Classify maps an error onto its failure class. Anything not registered as
// an authorization, validation or invariant error is treated as an external
// dependency failure.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	for _, c := range errorClasses {
		for _, e := range c.errs {
			if errors.Is(err, e) {
				return c.class
			}
		}
	}
	return ClassExternal
}
