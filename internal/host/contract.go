package host

import (
	"context"

	"github.com/elys-network/reservevault/internal/types"
)

// Contract is an external contract the host can call, such as a flash-loan
// borrower. Its returned instructions run with the contract as actor.
type Contract interface {
	Execute(ctx context.Context, env types.Env, info types.MessageInfo, payload []byte) (*types.Response, error)
}

// ContractFunc adapts a function to Contract.
type ContractFunc func(ctx context.Context, env types.Env, info types.MessageInfo, payload []byte) (*types.Response, error)

func (f ContractFunc) Execute(ctx context.Context, env types.Env, info types.MessageInfo, payload []byte) (*types.Response, error) {
	return f(ctx, env, info, payload)
}
