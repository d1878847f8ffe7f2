package types

import (
	"encoding/json"
	"fmt"
)

// EncodeExecuteMsg renders op as the externally tagged JSON the vault
// contract expects, e.g. {"redeem":{"amount":"10"}}.
func EncodeExecuteMsg(op Operation) ([]byte, error) {
	if op == nil {
		return nil, ErrUnknownOperation
	}
	bz, err := json.Marshal(map[string]Operation{op.OperationName(): op})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", op.OperationName(), err)
	}
	return bz, nil
}
