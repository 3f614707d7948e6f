package token

import (
	"fmt"
	"sync"

	"cosmossdk.io/math"
)

// Bank is an in-memory token ledger implementing Token. A transfer either
// applies completely or fails without effect.
type Bank struct {
	mu       sync.Mutex
	balances map[string]math.Int
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]math.Int)}
}

// Mint credits freshly created tokens to addr.
func (b *Bank) Mint(addr string, amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = b.balanceLocked(addr).Add(amount)
}

// Transfer moves amount from one account to another.
func (b *Bank) Transfer(from, to string, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("transfer amount must be non-negative")
	}
	if amount.IsZero() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	have := b.balanceLocked(from)
	if have.LT(amount) {
		return fmt.Errorf("insufficient balance: %s has %s, need %s", from, have, amount)
	}
	b.balances[from] = have.Sub(amount)
	b.balances[to] = b.balanceLocked(to).Add(amount)
	return nil
}

// BalanceOf returns the current balance of addr, zero if unknown.
func (b *Bank) BalanceOf(addr string) math.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceLocked(addr)
}

func (b *Bank) balanceLocked(addr string) math.Int {
	if bal, ok := b.balances[addr]; ok {
		return bal
	}
	return math.ZeroInt()
}
