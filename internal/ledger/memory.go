/*

This file contains the in-memory ledger used by the service and its tests.
It keeps the collaborator contract honest: every operation validates its
inputs before touching any balance, so a returned error implies no mutation.

*/

package ledger

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

// InMemoryLedger is a thread-safe map-backed Ledger for one denomination.
type InMemoryLedger struct {
	mu       sync.RWMutex
	denom    string
	balances map[string]sdkmath.Int
	supply   sdkmath.Int
}

// NewInMemoryLedger creates an empty ledger for the given denomination.
func NewInMemoryLedger(denom string) *InMemoryLedger {
	return &InMemoryLedger{
		denom:    denom,
		balances: make(map[string]sdkmath.Int),
		supply:   sdkmath.ZeroInt(),
	}
}

func validateOp(account string, amount sdkmath.Int) error {
	if account == "" {
		return ErrEmptyAccount
	}
	if amount.IsNil() {
		return ErrAmountNil
	}
	if amount.IsNegative() {
		return ErrAmountNegative
	}
	return nil
}

// Mint credits newly created units to an account.
func (l *InMemoryLedger) Mint(to string, amount sdkmath.Int) error {
	if err := validateOp(to, amount); err != nil {
		return fmt.Errorf("mint %s: %w", l.denom, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[to] = l.balanceLocked(to).Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn destroys units held by an account.
func (l *InMemoryLedger) Burn(from string, amount sdkmath.Int) error {
	if err := validateOp(from, amount); err != nil {
		return fmt.Errorf("burn %s: %w", l.denom, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("burn %s from %s: %w (have %s, need %s)",
			l.denom, from, ErrInsufficientBalance, balance, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

// Transfer moves units between accounts.
func (l *InMemoryLedger) Transfer(from, to string, amount sdkmath.Int) error {
	if err := validateOp(from, amount); err != nil {
		return fmt.Errorf("transfer %s: %w", l.denom, err)
	}
	if to == "" {
		return fmt.Errorf("transfer %s: %w", l.denom, ErrEmptyAccount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("transfer %s from %s: %w (have %s, need %s)",
			l.denom, from, ErrInsufficientBalance, balance, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}

// BalanceOf returns the balance of an account (zero if unknown).
func (l *InMemoryLedger) BalanceOf(account string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(account)
}

// TotalSupply returns the total minted-minus-burned supply.
func (l *InMemoryLedger) TotalSupply() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

func (l *InMemoryLedger) balanceLocked(account string) sdkmath.Int {
	if balance, ok := l.balances[account]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}
