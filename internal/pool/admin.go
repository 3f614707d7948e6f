package pool

import (
	"fmt"

	"cosmossdk.io/math"

	"YieldPool/internal/recorder"
)

// The operator surface is thin by design: callers are expected to pass an
// is-authorized gate (the API layer's capability check) before reaching it.

// SetFeeRate updates the fee rate, bounded by MaxFeeRateBps. Applies to
// future harvests only.
func (e *Engine) SetFeeRate(bps uint64) error {
	if bps > MaxFeeRateBps {
		return ErrFeeRateTooHigh
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.FeeRateBps = bps
	e.persist()
	e.logRecord(e.rec.RecordAdmin(&recorder.AdminEvent{
		Action: "SET_FEE_RATE",
		Detail: fmt.Sprintf("%d", bps),
	}))
	return nil
}

// SetPaused toggles the schedule-pause flag. While paused, commits are no-ops
// and pending buckets stay pending.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.Paused = paused
	e.persist()
	e.logRecord(e.rec.RecordAdmin(&recorder.AdminEvent{
		Action: "SET_PAUSED",
		Detail: fmt.Sprintf("%t", paused),
	}))
}

// SetBeneficiary updates the fee-withdrawal address.
func (e *Engine) SetBeneficiary(addr string) error {
	if addr == "" {
		return ErrNoBeneficiary
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.Beneficiary = addr
	e.persist()
	e.logRecord(e.rec.RecordAdmin(&recorder.AdminEvent{
		Action: "SET_BENEFICIARY",
		Detail: addr,
	}))
	return nil
}

// WithdrawFees transfers the whole fee reserve to the beneficiary. The
// reserve is earmarked and never user-distributable, so this is the only way
// it leaves the pool.
func (e *Engine) WithdrawFees() (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Beneficiary == "" {
		return math.ZeroInt(), ErrNoBeneficiary
	}
	amount := e.st.Ledger.FeeReserve
	if !amount.IsPositive() {
		return math.ZeroInt(), nil
	}

	snap := e.st.Clone()
	e.st.Ledger.FeeReserve = math.ZeroInt()
	if err := e.token.Transfer(e.addr, e.st.Beneficiary, amount); err != nil {
		e.st = snap
		return math.ZeroInt(), fmt.Errorf("withdraw fees: %w", err)
	}
	e.persist()
	e.logRecord(e.rec.RecordAdmin(&recorder.AdminEvent{
		Action: "WITHDRAW_FEES",
		Detail: amount.String(),
	}))
	return amount, nil
}

// EmergencyWithdraw sweeps every unlockable batch and moves the pool's entire
// token balance, fee reserve included, to the beneficiary. Migration escape
// hatch: per-account ledger entries are left as-is, so normal operation cannot
// resume until funds are restored.
func (e *Engine) EmergencyWithdraw() (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Beneficiary == "" {
		return math.ZeroInt(), ErrNoBeneficiary
	}

	snap := e.st.Clone()
	if _, err := e.sweepUnlockable(); err != nil {
		e.st = snap
		return math.ZeroInt(), err
	}
	amount := e.token.BalanceOf(e.addr)
	if amount.IsPositive() {
		if err := e.token.Transfer(e.addr, e.st.Beneficiary, amount); err != nil {
			e.st = snap
			return math.ZeroInt(), fmt.Errorf("emergency withdraw: %w", err)
		}
	}
	e.st.Ledger.FeeReserve = math.ZeroInt()
	e.reconcileBuckets()
	e.persist()
	e.logRecord(e.rec.RecordAdmin(&recorder.AdminEvent{
		Action: "EMERGENCY_WITHDRAW",
		Detail: amount.String(),
	}))
	return amount, nil
}
