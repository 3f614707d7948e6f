package pool

import "errors"

// Validation errors: the request itself is malformed.
var (
	ErrZeroDeposit     = errors.New("deposit amount must be positive")
	ErrDepositTooSmall = errors.New("deposit too small to mint a share unit at the current exchange rate")
	ErrZeroUnstake     = errors.New("unstake amount must be positive")
	ErrFeeRateTooHigh  = errors.New("fee rate exceeds maximum")
	ErrNoBeneficiary   = errors.New("no beneficiary configured")
)

// State errors: the request is well-formed but cannot be serviced right now.
// Retrying after state changes (e.g. more principal unlocking) is the
// caller's responsibility.
var (
	ErrNoDeposit                       = errors.New("no deposit to withdraw")
	ErrInsufficientRewardLiquidity     = errors.New("insufficient usable balance to pay reward")
	ErrInsufficientUnlockableLiquidity = errors.New("insufficient unlockable principal to meet target")
	ErrBatchIndexOutOfRange            = errors.New("batch index out of range")
	ErrBatchStillLocked                = errors.New("batch is still locked")
)

// ErrInvariantViolation signals a modeling bug, not an expected runtime
// condition. It is never recovered from; the triggering operation aborts and
// the error is surfaced loudly.
var ErrInvariantViolation = errors.New("accounting invariant violated")
