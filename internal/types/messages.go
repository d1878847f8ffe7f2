/*

This file contains the operations the host delivers to the vault and the
read-only queries it answers.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Operation is any message the vault can execute.
type Operation interface {
	OperationName() string
}

// InstantiateMsg creates the vault configuration. The caller becomes owner.
type InstantiateMsg struct {
	YieldMarketAddress    string      `json:"yield_market_addr"`
	ReceiptAssetAddress   string      `json:"receipt_asset_addr"`
	StableDenom           string      `json:"stable_denom"`
	MinimumStableReserved sdkmath.Int `json:"minimum_stable_reserved"`
}

// DepositMsg adds the attached stable funds to the vault. Owner only.
type DepositMsg struct{}

// RedeemMsg pays Amount stable units out to the owner.
type RedeemMsg struct {
	Amount sdkmath.Int `json:"amount"`
}

// RebalanceMsg moves the liquid stable balance to ReservedTarget. Vault only.
type RebalanceMsg struct {
	ReservedTarget sdkmath.Int `json:"reserved_target"`
}

// FlashLoanMsg borrows Amount stable units for the duration of one callback
// into the caller's contract with Payload.
type FlashLoanMsg struct {
	Amount sdkmath.Int `json:"amount"`
	// Borrower is optional. When set it must equal the caller; the callback
	// is never routed anywhere else.
	Borrower string `json:"borrower,omitempty"`
	Payload  []byte `json:"payload"`
}

// AssertRepaymentMsg checks that an open flash loan was restored. Vault only.
type AssertRepaymentMsg struct {
	Context FlashLoanContext `json:"context"`
}

func (InstantiateMsg) OperationName() string     { return "instantiate" }
func (DepositMsg) OperationName() string         { return "deposit" }
func (RedeemMsg) OperationName() string          { return "redeem" }
func (RebalanceMsg) OperationName() string       { return "rebalance" }
func (FlashLoanMsg) OperationName() string       { return "flashloan" }
func (AssertRepaymentMsg) OperationName() string { return "flashloan_assertion" }

// Query is any read-only request the vault answers.
type Query interface {
	QueryName() string
}

// TotalValueLockedQuery asks for stable balance plus the stable value of the
// receipt balance.
type TotalValueLockedQuery struct{}

// ConfigQuery asks for the stored VaultConfig.
type ConfigQuery struct{}

func (TotalValueLockedQuery) QueryName() string { return "total_value_locked" }
func (ConfigQuery) QueryName() string           { return "config" }

// TotalValueLockedResponse is the answer to TotalValueLockedQuery.
type TotalValueLockedResponse struct {
	TVL            sdkmath.Int       `json:"tvl"`
	StableBalance  sdkmath.Int       `json:"stable_balance"`
	ReceiptBalance sdkmath.Int       `json:"receipt_balance"`
	ReceiptValue   sdkmath.Int       `json:"receipt_value"` // receipt balance expressed in stable units
	ExchangeRate   sdkmath.LegacyDec `json:"exchange_rate"`
	Height         int64             `json:"height"`
}
