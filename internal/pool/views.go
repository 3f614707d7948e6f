package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"YieldPool/internal/model"
)

// UsableBalance returns tokens immediately available for payout, excluding
// the fee reserve.
func (e *Engine) UsableBalance() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usableBalance()
}

// TotalControlled returns usable balance plus all locked principal.
func (e *Engine) TotalControlled() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalControlled()
}

// TotalPendingUncommitted returns deposits bucketed but not yet committed to
// the vault.
func (e *Engine) TotalPendingUncommitted() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := math.ZeroInt()
	for _, amt := range e.st.Buckets {
		total = total.Add(amt)
	}
	return total
}

// TotalWithdrawable is a view-only projection: controlled principal plus the
// vault's estimate of unharvested pending yield. Vault figures are queried
// live, so the projection can fail when the vault is unreachable.
func (e *Engine) TotalWithdrawable() (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := e.usableBalance()
	for _, b := range e.st.Batches {
		principal, err := e.vault.CurrentPrincipal(b.VaultHandle)
		if err != nil {
			return math.ZeroInt(), fmt.Errorf("project batch %s: %w", b.VaultHandle, err)
		}
		total = total.Add(principal)
	}
	pending, err := e.vault.PendingYield()
	if err != nil {
		return math.ZeroInt(), fmt.Errorf("project pending yield: %w", err)
	}
	return total.Add(pending), nil
}

// TotalStaked returns the sum of all account principals.
func (e *Engine) TotalStaked() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Ledger.TotalStaked
}

// StakeOf returns an account's current principal, zero if unknown.
func (e *Engine) StakeOf(account string) math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if acct, ok := e.st.Accounts[account]; ok {
		return acct.StakePrincipal
	}
	return math.ZeroInt()
}

// PendingRewardOf returns an account's reward at the current accumulator,
// without harvesting. Fresh yield still inside the vault is not included.
func (e *Engine) PendingRewardOf(account string) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, ok := e.st.Accounts[account]
	if !ok {
		return math.ZeroInt(), nil
	}
	return e.pendingReward(acct)
}

// FeeReserve returns the operator-only reserve.
func (e *Engine) FeeReserve() math.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Ledger.FeeReserve
}

// FeeRateBps returns the configured fee rate in basis points.
func (e *Engine) FeeRateBps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.FeeRateBps
}

// Paused reports the schedule-pause flag.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Paused
}

// Batches returns a copy of the stake batch sequence, front of the queue
// first.
func (e *Engine) Batches() []model.StakeBatch {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.StakeBatch, len(e.st.Batches))
	for i, b := range e.st.Batches {
		out[i] = *b
	}
	return out
}

// Ledger returns a copy of the pool-wide share accounting totals.
func (e *Engine) Ledger() model.LedgerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Ledger
}
