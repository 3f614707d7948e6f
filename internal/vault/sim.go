package vault

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"

	"YieldPool/internal/token"
)

// SimVault is an in-process vault used for local runs and tests. It holds
// real balances on the shared token ledger, accrues yield only when told to
// via AddYield, and optionally vests principal linearly from deposit time so
// a withdrawal past unlock can still release less than requested.
type SimVault struct {
	mu sync.Mutex

	bank     *token.Bank
	addr     string // the vault's own token account
	poolAddr string

	lockDurations map[int]time.Duration
	vesting       time.Duration // 0 disables vesting

	deposits map[string]*simDeposit
	pending  math.Int // unharvested yield owed to the pool

	now func() time.Time
}

type simDeposit struct {
	original    math.Int
	remaining   math.Int
	depositedAt time.Time
}

// NewSimVault creates a simulator over the given bank. The default tiers are
// 0: two weeks, 1: one month, 2: three months, 3: six months, 4: twelve months.
func NewSimVault(bank *token.Bank, vaultAddr, poolAddr string) *SimVault {
	return &SimVault{
		bank:     bank,
		addr:     vaultAddr,
		poolAddr: poolAddr,
		lockDurations: map[int]time.Duration{
			0: 14 * 24 * time.Hour,
			1: 30 * 24 * time.Hour,
			2: 90 * 24 * time.Hour,
			3: 180 * 24 * time.Hour,
			4: 365 * 24 * time.Hour,
		},
		deposits: make(map[string]*simDeposit),
		pending:  math.ZeroInt(),
		now:      time.Now,
	}
}

// SetVesting enables linear vesting over d from deposit time.
func (v *SimVault) SetVesting(d time.Duration) { v.vesting = d }

// SetClock overrides the simulator's time source.
func (v *SimVault) SetClock(now func() time.Time) { v.now = now }

func (v *SimVault) Name() string { return "sim" }

// AddYield mints yield into the vault and marks it pending for the pool.
func (v *SimVault) AddYield(amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bank.Mint(v.addr, amount)
	v.pending = v.pending.Add(amount)
}

func (v *SimVault) Deposit(amount math.Int, lockTier int) (string, error) {
	if _, ok := v.lockDurations[lockTier]; !ok {
		return "", fmt.Errorf("unknown lock tier %d", lockTier)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("deposit amount must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.bank.Transfer(v.poolAddr, v.addr, amount); err != nil {
		return "", fmt.Errorf("pull deposit: %w", err)
	}
	handle := uuid.NewString()
	v.deposits[handle] = &simDeposit{
		original:    amount,
		remaining:   amount,
		depositedAt: v.now(),
	}
	return handle, nil
}

func (v *SimVault) WithdrawAndHarvest(handle string, amount math.Int) (math.Int, math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.deposits[handle]
	if !ok {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("unknown deposit handle %s", handle)
	}

	available := v.availableLocked(d)
	out := math.MinInt(amount, available)
	if out.IsNegative() {
		out = math.ZeroInt()
	}
	if out.IsPositive() {
		if err := v.bank.Transfer(v.addr, v.poolAddr, out); err != nil {
			return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("release principal: %w", err)
		}
		d.remaining = d.remaining.Sub(out)
	}

	// Any withdrawal auto-harvests all pending yield.
	yield, err := v.harvestLocked()
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	return out, yield, nil
}

func (v *SimVault) HarvestAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := v.harvestLocked()
	return err
}

func (v *SimVault) CurrentPrincipal(handle string) (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.deposits[handle]
	if !ok {
		return math.ZeroInt(), fmt.Errorf("unknown deposit handle %s", handle)
	}
	return d.remaining, nil
}

func (v *SimVault) LockDurationFor(lockTier int) (time.Duration, error) {
	d, ok := v.lockDurations[lockTier]
	if !ok {
		return 0, fmt.Errorf("unknown lock tier %d", lockTier)
	}
	return d, nil
}

func (v *SimVault) PendingYield() (math.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending, nil
}

func (v *SimVault) harvestLocked() (math.Int, error) {
	yield := v.pending
	if !yield.IsPositive() {
		return math.ZeroInt(), nil
	}
	if err := v.bank.Transfer(v.addr, v.poolAddr, yield); err != nil {
		return math.ZeroInt(), fmt.Errorf("harvest: %w", err)
	}
	v.pending = math.ZeroInt()
	return yield, nil
}

// availableLocked applies linear vesting: the vested fraction of the original
// deposit, less what was already withdrawn, capped at the remainder.
func (v *SimVault) availableLocked(d *simDeposit) math.Int {
	if v.vesting <= 0 {
		return d.remaining
	}
	elapsed := v.now().Sub(d.depositedAt)
	if elapsed >= v.vesting {
		return d.remaining
	}
	if elapsed <= 0 {
		return math.ZeroInt()
	}
	vested := d.original.MulRaw(int64(elapsed)).QuoRaw(int64(v.vesting))
	withdrawn := d.original.Sub(d.remaining)
	available := vested.Sub(withdrawn)
	if available.IsNegative() {
		return math.ZeroInt()
	}
	return math.MinInt(available, d.remaining)
}
