/*

This file contains the instruction types an operation emits. Operations never
perform side effects themselves: they return an ordered list of instructions
that the host executes, in order and atomically, after the operation returns.

*/

package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// InstructionType defines the specific low-level operations.
type InstructionType string

const (
	InstructionYieldDeposit    InstructionType = "YIELD_DEPOSIT"    // Deposit stable funds into the yield market
	InstructionReceiptSend     InstructionType = "RECEIPT_SEND"     // Send receipts to a contract with a hook message
	InstructionBankSend        InstructionType = "BANK_SEND"        // Plain stable transfer
	InstructionExecuteVault    InstructionType = "EXECUTE_VAULT"    // Self-addressed vault operation
	InstructionExecuteContract InstructionType = "EXECUTE_CONTRACT" // Opaque call into an external contract
)

// ReceiptHook is the message delivered alongside a receipt send.
type ReceiptHook string

const (
	HookRedeemStable ReceiptHook = "redeem_stable"
)

// Instruction represents a single, executable step emitted by an operation.
type Instruction struct {
	Type InstructionType `json:"type"`

	// Target contract: the yield market, the receipt token, the vault itself
	// or the borrower.
	Contract string `json:"contract,omitempty"`

	// Fields for BANK_SEND, YIELD_DEPOSIT and EXECUTE_CONTRACT
	Recipient string    `json:"recipient,omitempty"` // For BANK_SEND
	Funds     sdk.Coins `json:"funds,omitempty"`

	// Fields for RECEIPT_SEND
	HookContract string      `json:"hook_contract,omitempty"` // Contract receiving the receipts and the hook
	Amount       sdkmath.Int `json:"amount,omitempty"`
	Hook         ReceiptHook `json:"hook,omitempty"`

	// For EXECUTE_VAULT
	Operation Operation `json:"operation,omitempty"`

	// For EXECUTE_CONTRACT
	Payload []byte `json:"payload,omitempty"`
}

// NewYieldDeposit deposits coin into the yield market.
func NewYieldDeposit(market string, coin sdk.Coin) Instruction {
	return Instruction{Type: InstructionYieldDeposit, Contract: market, Funds: sdk.NewCoins(coin)}
}

// NewReceiptRedeem sends amount receipts through the receipt token to the
// market with the redeem hook, which pays stable back to the sender.
func NewReceiptRedeem(receiptToken, market string, amount sdkmath.Int) Instruction {
	return Instruction{
		Type:         InstructionReceiptSend,
		Contract:     receiptToken,
		HookContract: market,
		Amount:       amount,
		Hook:         HookRedeemStable,
	}
}

// NewBankSend transfers coins from the vault to recipient.
func NewBankSend(recipient string, coins sdk.Coins) Instruction {
	return Instruction{Type: InstructionBankSend, Recipient: recipient, Funds: coins}
}

// NewSelfCall schedules op against the vault with the vault as caller.
func NewSelfCall(vault string, op Operation) Instruction {
	return Instruction{Type: InstructionExecuteVault, Contract: vault, Operation: op}
}

// NewContractCall invokes contract with payload, attaching funds.
func NewContractCall(contract string, payload []byte, funds sdk.Coins) Instruction {
	return Instruction{Type: InstructionExecuteContract, Contract: contract, Payload: payload, Funds: funds}
}

func (i Instruction) String() string {
	switch i.Type {
	case InstructionYieldDeposit:
		return fmt.Sprintf("%s %s -> %s", i.Type, i.Funds, i.Contract)
	case InstructionReceiptSend:
		return fmt.Sprintf("%s %s via %s -> %s (%s)", i.Type, i.Amount, i.Contract, i.HookContract, i.Hook)
	case InstructionBankSend:
		return fmt.Sprintf("%s %s -> %s", i.Type, i.Funds, i.Recipient)
	case InstructionExecuteVault:
		name := "<nil>"
		if i.Operation != nil {
			name = i.Operation.OperationName()
		}
		return fmt.Sprintf("%s %s", i.Type, name)
	default:
		return fmt.Sprintf("%s %s funds=%s", i.Type, i.Contract, i.Funds)
	}
}

// Attribute is a key/value pair reported alongside a response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of one operation: the instructions the host must
// execute next, in order, plus reporting attributes.
type Response struct {
	Instructions []Instruction `json:"instructions"`
	Attributes   []Attribute   `json:"attributes"`
}

// NewResponse starts a response tagged with action.
func NewResponse(action string) *Response {
	return &Response{Attributes: []Attribute{{Key: "action", Value: action}}}
}

// AddAttribute appends a reporting attribute.
func (r *Response) AddAttribute(key string, value fmt.Stringer) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value.String()})
	return r
}

// AddInstruction appends an instruction to the ordered list.
func (r *Response) AddInstruction(in Instruction) *Response {
	r.Instructions = append(r.Instructions, in)
	return r
}

// Attribute returns the last value recorded for key.
func (r *Response) Attribute(key string) (string, bool) {
	for i := len(r.Attributes) - 1; i >= 0; i-- {
		if r.Attributes[i].Key == key {
			return r.Attributes[i].Value, true
		}
	}
	return "", false
}
