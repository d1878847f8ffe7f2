package chain

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// epochStateQuery is the market's smart query for the exchange rate at a height.
type epochStateQuery struct {
	EpochState struct {
		BlockHeight *uint64 `json:"block_height,omitempty"`
	} `json:"epoch_state"`
}

type epochStateResponse struct {
	ExchangeRate  string `json:"exchange_rate"`
	ReceiptSupply string `json:"aterra_supply"`
}

// cw20BalanceQuery is the cw20 balance smart query.
type cw20BalanceQuery struct {
	Balance struct {
		Address string `json:"address"`
	} `json:"balance"`
}

type cw20BalanceResponse struct {
	Balance string `json:"balance"`
}

func encodeEpochStateQuery(height int64) ([]byte, error) {
	var q epochStateQuery
	if height > 0 {
		h := uint64(height)
		q.EpochState.BlockHeight = &h
	}
	return json.Marshal(q)
}

func decodeEpochState(data []byte) (sdkmath.LegacyDec, error) {
	if len(data) == 0 {
		return sdkmath.LegacyDec{}, ErrEmptyResponse
	}
	var resp epochStateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: epoch state: %v", ErrInvalidResponse, err)
	}
	rate, err := sdkmath.LegacyNewDecFromStr(resp.ExchangeRate)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: exchange rate %q: %v", ErrInvalidResponse, resp.ExchangeRate, err)
	}
	return rate, nil
}

func encodeCW20BalanceQuery(address string) ([]byte, error) {
	var q cw20BalanceQuery
	q.Balance.Address = address
	return json.Marshal(q)
}

func decodeCW20Balance(data []byte) (sdkmath.Int, error) {
	if len(data) == 0 {
		return sdkmath.Int{}, ErrEmptyResponse
	}
	var resp cw20BalanceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: cw20 balance: %v", ErrInvalidResponse, err)
	}
	amount, ok := sdkmath.NewIntFromString(resp.Balance)
	if !ok || amount.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: cw20 balance %q", ErrInvalidResponse, resp.Balance)
	}
	return amount, nil
}
