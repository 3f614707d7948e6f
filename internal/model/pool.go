package model

import (
	"time"

	"cosmossdk.io/math"
)

// Account is one depositor's position in the pool.
// PendingReward(acct) = StakePrincipal * AccRewardsPerShare / Scale - RewardDebt
// and must never go negative.
type Account struct {
	StakePrincipal math.Int `json:"stake_principal"`
	RewardDebt     math.Int `json:"reward_debt"` // signed pre-paid reward marker
}

// StakeBatch is one cohort of committed principal sharing a single unlock time.
// Amount is resynchronized to the vault's authoritative figure after any
// partial withdrawal.
type StakeBatch struct {
	Amount      math.Int `json:"amount"`
	UnlockAt    int64    `json:"unlock_at"` // unix seconds
	VaultHandle string   `json:"vault_handle"`
}

// LedgerState holds the pool-wide share accounting totals.
type LedgerState struct {
	TotalStaked        math.Int `json:"total_staked"`
	AccRewardsPerShare math.Int `json:"acc_rewards_per_share"` // 1e18 fixed point, monotone
	TotalRewardsEarned math.Int `json:"total_rewards_earned"`  // cumulative net of fees, monotone
	FeeReserve         math.Int `json:"fee_reserve"`           // operator-only, never user-distributable
}

// PoolState is the full persisted aggregate the engine owns. Buckets are keyed
// by day number (unix / 86400); Batches stay sorted ascending by UnlockAt.
type PoolState struct {
	Accounts    map[string]*Account `json:"accounts"`
	Buckets     map[int64]math.Int  `json:"pending_buckets"`
	Batches     []*StakeBatch       `json:"stake_batches"`
	Ledger      LedgerState         `json:"ledger"`
	FeeRateBps  uint64              `json:"fee_rate_bps"`
	Paused      bool                `json:"paused"`
	Beneficiary string              `json:"beneficiary"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Normalize replaces nil amounts with zero and allocates empty containers so a
// freshly loaded or zero-value state is safe to operate on.
func (s *PoolState) Normalize() {
	if s.Accounts == nil {
		s.Accounts = make(map[string]*Account)
	}
	if s.Buckets == nil {
		s.Buckets = make(map[int64]math.Int)
	}
	for _, a := range s.Accounts {
		a.StakePrincipal = orZero(a.StakePrincipal)
		a.RewardDebt = orZero(a.RewardDebt)
	}
	for day, amt := range s.Buckets {
		s.Buckets[day] = orZero(amt)
	}
	for _, b := range s.Batches {
		b.Amount = orZero(b.Amount)
	}
	s.Ledger.TotalStaked = orZero(s.Ledger.TotalStaked)
	s.Ledger.AccRewardsPerShare = orZero(s.Ledger.AccRewardsPerShare)
	s.Ledger.TotalRewardsEarned = orZero(s.Ledger.TotalRewardsEarned)
	s.Ledger.FeeReserve = orZero(s.Ledger.FeeReserve)
}

// Clone returns a deep copy used for snapshot/rollback around mutating
// operations.
func (s *PoolState) Clone() *PoolState {
	c := &PoolState{
		Accounts:    make(map[string]*Account, len(s.Accounts)),
		Buckets:     make(map[int64]math.Int, len(s.Buckets)),
		Batches:     make([]*StakeBatch, len(s.Batches)),
		Ledger:      s.Ledger,
		FeeRateBps:  s.FeeRateBps,
		Paused:      s.Paused,
		Beneficiary: s.Beneficiary,
		UpdatedAt:   s.UpdatedAt,
	}
	for addr, a := range s.Accounts {
		acct := *a
		c.Accounts[addr] = &acct
	}
	for day, amt := range s.Buckets {
		c.Buckets[day] = amt
	}
	for i, b := range s.Batches {
		batch := *b
		c.Batches[i] = &batch
	}
	return c
}

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}
