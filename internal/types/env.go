package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Env is the host-provided execution environment of one operation.
type Env struct {
	BlockHeight  int64
	VaultAddress string
}

// MessageInfo carries the caller of an operation and the funds the host has
// already moved to the vault on its behalf.
type MessageInfo struct {
	Sender string
	Funds  sdk.Coins
}
