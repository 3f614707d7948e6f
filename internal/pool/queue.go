package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"YieldPool/internal/model"
)

// UnstakeToTarget unwinds unlockable batches, front of the queue first, until
// the released principal covers target. Fails without effect when the
// unlockable principal cannot cover the target. When the vault releases less
// than the batch records (vesting), the scan can still come up short after
// withdrawing; the internal state rolls back but the released tokens stay in
// the pool's usable balance and batch figures resync on the next touch.
func (e *Engine) UnstakeToTarget(target math.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.st.Clone()
	if err := e.unstakeToTarget(target); err != nil {
		e.st = snap
		return err
	}
	e.persist()
	return nil
}

func (e *Engine) unstakeToTarget(target math.Int) error {
	if target.IsNil() || !target.IsPositive() {
		return nil
	}
	now := e.now().Unix()

	// Check the unlockable principal up front so the common failure (still
	// locked) leaves the vault untouched.
	unlockable := math.ZeroInt()
	for _, b := range e.st.Batches {
		if b.UnlockAt > now {
			break
		}
		unlockable = unlockable.Add(b.Amount)
	}
	if unlockable.LT(target) {
		return ErrInsufficientUnlockableLiquidity
	}

	released := math.ZeroInt()
	for _, b := range e.st.Batches {
		// The sequence is unlockAt-sorted: the first locked batch ends the
		// scan.
		if b.UnlockAt > now {
			break
		}
		if released.GTE(target) {
			break
		}
		want := math.MinInt(target.Sub(released), b.Amount)
		principal, err := e.unstakeFromBatch(b, want)
		if err != nil {
			return err
		}
		released = released.Add(principal)
	}

	e.compactBatches()

	if released.LT(target) {
		return ErrInsufficientUnlockableLiquidity
	}
	return nil
}

// UnstakeBatch applies the withdraw-and-resync logic to one named batch,
// capping amount at the batch's current size.
func (e *Engine) UnstakeBatch(index int, amount math.Int) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.st.Batches) {
		return math.ZeroInt(), ErrBatchIndexOutOfRange
	}
	b := e.st.Batches[index]
	if b.UnlockAt > e.now().Unix() {
		return math.ZeroInt(), ErrBatchStillLocked
	}
	if amount.IsNil() || !amount.IsPositive() {
		return math.ZeroInt(), ErrZeroUnstake
	}

	snap := e.st.Clone()
	released, err := e.unstakeFromBatch(b, math.MinInt(amount, b.Amount))
	if err != nil {
		e.st = snap
		return math.ZeroInt(), err
	}
	e.compactBatches()
	e.persist()
	return released, nil
}

// SweepUnlockable unwinds every currently-unlockable batch in full, used for
// bulk liquidity recovery. Returns the total principal released.
func (e *Engine) SweepUnlockable() (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.st.Clone()
	released, err := e.sweepUnlockable()
	if err != nil {
		e.st = snap
		return math.ZeroInt(), err
	}
	e.persist()
	return released, nil
}

func (e *Engine) sweepUnlockable() (math.Int, error) {
	now := e.now().Unix()
	released := math.ZeroInt()
	for _, b := range e.st.Batches {
		if b.UnlockAt > now {
			break
		}
		principal, err := e.unstakeFromBatch(b, b.Amount)
		if err != nil {
			return math.ZeroInt(), err
		}
		released = released.Add(principal)
	}
	e.compactBatches()
	return released, nil
}

// unstakeFromBatch withdraws up to amount of principal from one batch and
// resynchronizes the batch to the vault's authoritative residual. The vault's
// declared return values are never trusted for amount accounting: the total
// received is measured by balance differencing and split against the
// authoritative principal drop. The withdrawal auto-harvests yield as a side
// effect; that yield goes through the fee split and accumulator, never toward
// an unstake target.
func (e *Engine) unstakeFromBatch(b *model.StakeBatch, amount math.Int) (math.Int, error) {
	pre := e.token.BalanceOf(e.addr)
	if _, _, err := e.vault.WithdrawAndHarvest(b.VaultHandle, amount); err != nil {
		return math.ZeroInt(), fmt.Errorf("unstake batch %s: %w", b.VaultHandle, err)
	}
	received := e.token.BalanceOf(e.addr).Sub(pre)
	if received.IsNegative() {
		received = math.ZeroInt()
	}

	residual, err := e.vault.CurrentPrincipal(b.VaultHandle)
	if err != nil {
		return math.ZeroInt(), fmt.Errorf("resync batch %s: %w", b.VaultHandle, err)
	}
	principal := b.Amount.Sub(residual)
	if principal.IsNegative() {
		principal = math.ZeroInt()
	}
	principal = math.MinInt(principal, received)
	b.Amount = residual

	if yield := received.Sub(principal); yield.IsPositive() {
		e.absorbYield(yield)
	}
	return principal, nil
}

// compactBatches drops zero-amount batches after a scan, preserving the
// relative order of the remainder. Safe to call when nothing is zero.
func (e *Engine) compactBatches() {
	kept := make([]*model.StakeBatch, 0, len(e.st.Batches))
	for _, b := range e.st.Batches {
		if b.Amount.IsPositive() {
			kept = append(kept, b)
		}
	}
	e.st.Batches = kept
}
