package host

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/reservevault/internal/types"
)

// MemLedger is an in-memory fungible-asset ledger covering bank coins and
// cw20 balances. All arithmetic is overflow-checked.
type MemLedger struct {
	mu       sync.RWMutex
	balances map[types.Asset]map[string]sdkmath.Int
}

// NewMemLedger returns an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[types.Asset]map[string]sdkmath.Int)}
}

// Balance returns the amount of asset held by account, zero when unknown.
func (l *MemLedger) Balance(_ context.Context, account string, asset types.Asset) (sdkmath.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.get(account, asset), nil
}

// Mint credits amount of asset to account.
func (l *MemLedger) Mint(account string, asset types.Asset, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit(account, asset, amount)
}

// Burn debits amount of asset from account.
func (l *MemLedger) Burn(account string, asset types.Asset, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debit(account, asset, amount)
}

// Transfer moves amount of asset from one account to another.
func (l *MemLedger) Transfer(from, to string, asset types.Asset, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(from, asset, amount); err != nil {
		return err
	}
	if err := l.credit(to, asset, amount); err != nil {
		// restore the debit so a failed transfer leaves no trace
		_ = l.credit(from, asset, amount)
		return err
	}
	return nil
}

// TransferCoins moves bank coins from one account to another.
func (l *MemLedger) TransferCoins(from, to string, coins sdk.Coins) error {
	for _, coin := range coins {
		if err := l.Transfer(from, to, types.NativeAsset(coin.Denom), coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

type ledgerSnapshot map[types.Asset]map[string]sdkmath.Int

func (l *MemLedger) snapshot() ledgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(ledgerSnapshot, len(l.balances))
	for asset, accounts := range l.balances {
		copied := make(map[string]sdkmath.Int, len(accounts))
		for account, amount := range accounts {
			copied[account] = amount
		}
		snap[asset] = copied
	}
	return snap
}

func (l *MemLedger) restore(snap ledgerSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = snap
}

func (l *MemLedger) get(account string, asset types.Asset) sdkmath.Int {
	if amount, ok := l.balances[asset][account]; ok {
		return amount
	}
	return sdkmath.ZeroInt()
}

func (l *MemLedger) credit(account string, asset types.Asset, amount sdkmath.Int) error {
	next, err := l.get(account, asset).SafeAdd(amount)
	if err != nil {
		return errorsmod.Wrapf(types.ErrOverflow, "credit %s %s to %s", amount, asset, account)
	}
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[string]sdkmath.Int)
	}
	l.balances[asset][account] = next
	return nil
}

func (l *MemLedger) debit(account string, asset types.Asset, amount sdkmath.Int) error {
	held := l.get(account, asset)
	if held.LT(amount) {
		return errorsmod.Wrapf(types.ErrInsufficientBalance, "%s holds %s %s, needs %s", account, held, asset, amount)
	}
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[string]sdkmath.Int)
	}
	l.balances[asset][account] = held.Sub(amount)
	return nil
}

func checkAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errorsmod.Wrap(types.ErrInvalidAmount, "amount must be non-negative")
	}
	return nil
}
