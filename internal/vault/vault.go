package vault

import (
	"time"

	"cosmossdk.io/math"
)

// Vault is the external yield-bearing vault the pool forwards principal into.
// Deposits are locked under a tier; the vault may release less principal than
// requested per its own vesting rules, and its figures are authoritative.
type Vault interface {
	// Deposit locks amount under the tier and returns an opaque handle.
	Deposit(amount math.Int, lockTier int) (string, error)

	// WithdrawAndHarvest releases up to amount of principal from the handle's
	// deposit and transfers any pending yield as a side effect. It returns the
	// principal actually released and the yield harvested.
	WithdrawAndHarvest(handle string, amount math.Int) (principal, yield math.Int, err error)

	// HarvestAll transfers all pending yield to the pool.
	HarvestAll() error

	// CurrentPrincipal returns the authoritative remaining principal for a
	// deposit, used to resynchronize batch amounts.
	CurrentPrincipal(handle string) (math.Int, error)

	// LockDurationFor returns the lock duration of a tier.
	LockDurationFor(lockTier int) (time.Duration, error)

	// PendingYield returns unharvested yield owed to the pool (view only).
	PendingYield() (math.Int, error)

	Name() string
}
