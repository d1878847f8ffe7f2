/*

This file contains an in-memory yield market. Deposits mint receipts at the
current exchange rate, redemptions burn receipts and pay stable out of the
market's own liquidity. It exists so the vault can be exercised end to end
without a chain.

*/

package host

import (
	"context"
	"sort"
	"sync"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/reservevault/internal/convert"
	"github.com/elys-network/reservevault/internal/types"
)

// Market is an in-memory money market quoting stable units per receipt.
type Market struct {
	mu           sync.RWMutex
	address      string
	receiptToken string
	stableDenom  string
	ledger       *MemLedger

	rate      sdkmath.LegacyDec
	schedule  map[int64]sdkmath.LegacyDec
	queryErr  error
	rateCalls int
}

// NewMarket creates a market at address issuing receipts through the cw20
// receiptToken and accepting stableDenom.
func NewMarket(address, receiptToken, stableDenom string, ledger *MemLedger, rate sdkmath.LegacyDec) *Market {
	return &Market{
		address:      address,
		receiptToken: receiptToken,
		stableDenom:  stableDenom,
		ledger:       ledger,
		rate:         rate,
		schedule:     make(map[int64]sdkmath.LegacyDec),
	}
}

func (m *Market) Address() string      { return m.address }
func (m *Market) ReceiptToken() string { return m.receiptToken }

// SetRate replaces the rate used for heights without a scheduled rate.
func (m *Market) SetRate(rate sdkmath.LegacyDec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

// ScheduleRate makes rate effective from height onwards.
func (m *Market) ScheduleRate(height int64, rate sdkmath.LegacyDec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedule[height] = rate
}

// FailQueries makes every rate query fail with err until called with nil.
func (m *Market) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// RateQueries returns how many rate queries the market has answered.
func (m *Market) RateQueries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rateCalls
}

// ExchangeRate returns the rate effective at height.
func (m *Market) ExchangeRate(_ context.Context, height int64) (sdkmath.LegacyDec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateCalls++
	if m.queryErr != nil {
		return sdkmath.LegacyDec{}, m.queryErr
	}
	return m.rateAt(height), nil
}

func (m *Market) rateAt(height int64) sdkmath.LegacyDec {
	heights := make([]int64, 0, len(m.schedule))
	for h := range m.schedule {
		if h <= height {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return m.rate
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return m.schedule[heights[len(heights)-1]]
}

// Deposit mints floor(amount / rate) receipts to depositor. The stable coin
// must already be held by the market.
func (m *Market) Deposit(ctx context.Context, height int64, depositor string, coin sdk.Coin) (sdkmath.Int, error) {
	if coin.Denom != m.stableDenom {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrInvalidFunds, "market accepts %s, got %s", m.stableDenom, coin.Denom)
	}
	rate, err := m.ExchangeRate(ctx, height)
	if err != nil {
		return sdkmath.Int{}, errorsmod.Wrap(types.ErrExchangeRateQuery, err.Error())
	}
	minted, err := receiptsFor(coin.Amount, rate)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := m.ledger.Mint(depositor, types.CW20Asset(m.receiptToken), minted); err != nil {
		return sdkmath.Int{}, err
	}
	return minted, nil
}

// Redeem burns receipts the market has been sent and pays their floored
// stable value to redeemer from market liquidity.
func (m *Market) Redeem(ctx context.Context, height int64, redeemer string, receipts sdkmath.Int) (sdkmath.Int, error) {
	rate, err := m.ExchangeRate(ctx, height)
	if err != nil {
		return sdkmath.Int{}, errorsmod.Wrap(types.ErrExchangeRateQuery, err.Error())
	}
	payout, err := convert.ReceiptToStable(receipts, rate)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := m.ledger.Burn(m.address, types.CW20Asset(m.receiptToken), receipts); err != nil {
		return sdkmath.Int{}, err
	}
	if err := m.ledger.Transfer(m.address, redeemer, types.NativeAsset(m.stableDenom), payout); err != nil {
		return sdkmath.Int{}, err
	}
	return payout, nil
}

type marketSnapshot struct {
	rate     sdkmath.LegacyDec
	schedule map[int64]sdkmath.LegacyDec
}

func (m *Market) snapshot() marketSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schedule := make(map[int64]sdkmath.LegacyDec, len(m.schedule))
	for h, r := range m.schedule {
		schedule[h] = r
	}
	return marketSnapshot{rate: m.rate, schedule: schedule}
}

func (m *Market) restore(snap marketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = snap.rate
	m.schedule = snap.schedule
}

// receiptsFor floors amount / rate.
func receiptsFor(amount sdkmath.Int, rate sdkmath.LegacyDec) (receipts sdkmath.Int, err error) {
	if rate.IsNil() || !rate.IsPositive() {
		return sdkmath.Int{}, errorsmod.Wrapf(types.ErrInvalidExchangeRate, "rate %v", rate)
	}
	defer func() {
		if r := recover(); r != nil {
			receipts = sdkmath.Int{}
			err = errorsmod.Wrapf(types.ErrOverflow, "%v", r)
		}
	}()
	return sdkmath.LegacyNewDecFromInt(amount).Quo(rate).TruncateInt(), nil
}
