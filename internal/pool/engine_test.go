package pool

import (
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"

	"YieldPool/internal/token"
	"YieldPool/internal/vault"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(t *testing.T, feeBps uint64) (*token.Bank, *vault.SimVault, *Engine, *fakeClock) {
	t.Helper()

	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	bank := token.NewBank()
	v := vault.NewSimVault(bank, "vault", "pool")
	v.SetClock(clk.Now)

	e, err := NewEngine(bank, v, nil, Options{
		PoolAddr:    "pool",
		LockTier:    0, // two weeks
		FeeRateBps:  feeBps,
		Beneficiary: "treasury",
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.now = clk.Now
	return bank, v, e, clk
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	bank, _, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))

	received, err := e.Deposit("alice", math.NewInt(1000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !received.Equal(math.NewInt(1000)) {
		t.Fatalf("received = %s, want 1000", received)
	}
	if got := e.StakeOf("alice"); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("stake = %s, want 1000", got)
	}

	res, err := e.Withdraw("alice")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !res.Payout.Equal(math.NewInt(1000)) {
		t.Fatalf("payout = %s, want 1000", res.Payout)
	}
	if !res.Reward.IsZero() {
		t.Fatalf("reward = %s, want 0", res.Reward)
	}
	if got := bank.BalanceOf("alice"); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("alice balance = %s, want 1000", got)
	}
	if got := e.TotalStaked(); !got.IsZero() {
		t.Fatalf("total staked = %s, want 0", got)
	}
}

func TestDepositRejectsNonPositive(t *testing.T) {
	_, _, e, _ := newTestEngine(t, 0)

	if _, err := e.Deposit("alice", math.ZeroInt()); !errors.Is(err, ErrZeroDeposit) {
		t.Fatalf("zero deposit: got %v, want ErrZeroDeposit", err)
	}
	if _, err := e.Deposit("alice", math.NewInt(-5)); !errors.Is(err, ErrZeroDeposit) {
		t.Fatalf("negative deposit: got %v, want ErrZeroDeposit", err)
	}
}

func TestDepositTooSmall(t *testing.T) {
	bank, _, e, _ := newTestEngine(t, 0)

	whale := math.NewIntWithDecimal(2, 18)
	bank.Mint("whale", whale)
	if _, err := e.Deposit("whale", whale); err != nil {
		t.Fatalf("whale deposit: %v", err)
	}

	bank.Mint("dust", math.NewInt(1))
	if _, err := e.Deposit("dust", math.NewInt(1)); !errors.Is(err, ErrDepositTooSmall) {
		t.Fatalf("dust deposit: got %v, want ErrDepositTooSmall", err)
	}
}

func TestWithdrawWithoutDeposit(t *testing.T) {
	_, _, e, _ := newTestEngine(t, 0)

	if _, err := e.Withdraw("nobody"); !errors.Is(err, ErrNoDeposit) {
		t.Fatalf("got %v, want ErrNoDeposit", err)
	}
	if _, err := e.Claim("nobody"); !errors.Is(err, ErrNoDeposit) {
		t.Fatalf("got %v, want ErrNoDeposit", err)
	}
}

func TestTotalStakedMatchesAccountSum(t *testing.T) {
	bank, _, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(500))
	bank.Mint("bob", math.NewInt(700))

	mustDeposit(t, e, "alice", 300)
	mustDeposit(t, e, "bob", 700)
	mustDeposit(t, e, "alice", 200)

	sum := e.StakeOf("alice").Add(e.StakeOf("bob"))
	if !e.TotalStaked().Equal(sum) {
		t.Fatalf("total staked %s != account sum %s", e.TotalStaked(), sum)
	}
}

func TestRewardSplitEqualStakes(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	bank.Mint("bob", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)
	mustDeposit(t, e, "bob", 1000)

	v.AddYield(math.NewInt(500))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	for _, acct := range []string{"alice", "bob"} {
		pending, err := e.PendingRewardOf(acct)
		if err != nil {
			t.Fatalf("pending %s: %v", acct, err)
		}
		if !pending.Equal(math.NewInt(250)) {
			t.Fatalf("pending %s = %s, want 250", acct, pending)
		}
	}
}

func TestRewardSplitProportional(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(750))
	bank.Mint("bob", math.NewInt(250))
	mustDeposit(t, e, "alice", 750)
	mustDeposit(t, e, "bob", 250)

	v.AddYield(math.NewInt(1000))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	assertPending(t, e, "alice", 750)
	assertPending(t, e, "bob", 250)
}

func TestLateDepositorGetsNoPastYield(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	bank.Mint("bob", math.NewInt(1000))

	mustDeposit(t, e, "alice", 1000)
	v.AddYield(math.NewInt(100))

	// Bob's deposit checkpoints the accumulator first, so the earlier yield
	// stays with alice.
	mustDeposit(t, e, "bob", 1000)
	assertPending(t, e, "bob", 0)

	v.AddYield(math.NewInt(100))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	assertPending(t, e, "alice", 150)
	assertPending(t, e, "bob", 50)
}

func TestFeeSkimFloors(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 1000) // 10%
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	v.AddYield(math.NewInt(999))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	// floor(999 * 1000 / 10000) = 99
	if got := e.FeeReserve(); !got.Equal(math.NewInt(99)) {
		t.Fatalf("fee reserve = %s, want 99", got)
	}
	assertPending(t, e, "alice", 900)
	if got := e.Ledger().TotalRewardsEarned; !got.Equal(math.NewInt(900)) {
		t.Fatalf("total rewards earned = %s, want 900", got)
	}
}

func TestAccrueNoStakersIsNoOp(t *testing.T) {
	_, v, e, _ := newTestEngine(t, 1000)

	v.AddYield(math.NewInt(500))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if !e.Ledger().AccRewardsPerShare.IsZero() {
		t.Fatal("accumulator moved with zero stakers")
	}
	if !e.FeeReserve().IsZero() {
		t.Fatal("fee skimmed with zero stakers")
	}
	pending, err := v.PendingYield()
	if err != nil {
		t.Fatalf("pending yield: %v", err)
	}
	if !pending.Equal(math.NewInt(500)) {
		t.Fatalf("vault pending = %s, want 500 (unharvested)", pending)
	}
}

func TestCommitScheduled(t *testing.T) {
	bank, _, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	// Same-day commit excludes today's bucket.
	res, err := e.CommitScheduled()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Committed {
		t.Fatal("same-day commit should be a no-op")
	}

	clk.Advance(24 * time.Hour)
	res, err = e.CommitScheduled()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !res.Committed || !res.Amount.Equal(math.NewInt(1000)) {
		t.Fatalf("commit = %+v, want committed 1000", res)
	}
	wantUnlock := clk.Now().Add(14 * 24 * time.Hour).Unix()
	if res.UnlockAt != wantUnlock {
		t.Fatalf("unlock at %d, want %d", res.UnlockAt, wantUnlock)
	}
	if got := e.TotalPendingUncommitted(); !got.IsZero() {
		t.Fatalf("pending uncommitted = %s, want 0", got)
	}
	if got := len(e.Batches()); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}

	// Idempotent within the day.
	res, err = e.CommitScheduled()
	if err != nil {
		t.Fatalf("repeat commit: %v", err)
	}
	if res.Committed {
		t.Fatal("repeat commit should be a no-op")
	}
}

func TestCommitWhilePausedKeepsBuckets(t *testing.T) {
	bank, _, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)
	clk.Advance(24 * time.Hour)

	e.SetPaused(true)
	res, err := e.CommitScheduled()
	if err != nil {
		t.Fatalf("paused commit: %v", err)
	}
	if res.Committed {
		t.Fatal("paused commit should be a no-op")
	}
	if got := e.TotalPendingUncommitted(); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("pending uncommitted = %s, want 1000 (buckets untouched)", got)
	}

	e.SetPaused(false)
	res, err = e.CommitScheduled()
	if err != nil {
		t.Fatalf("resumed commit: %v", err)
	}
	if !res.Committed {
		t.Fatal("resumed commit should flush the held buckets")
	}
}

func TestClaim(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	v.AddYield(math.NewInt(300))
	reward, err := e.Claim("alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !reward.Equal(math.NewInt(300)) {
		t.Fatalf("reward = %s, want 300", reward)
	}
	if got := bank.BalanceOf("alice"); !got.Equal(math.NewInt(300)) {
		t.Fatalf("alice balance = %s, want 300", got)
	}

	// Principal untouched, nothing further to claim.
	if got := e.StakeOf("alice"); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("stake = %s, want 1000", got)
	}
	reward, err = e.Claim("alice")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if !reward.IsZero() {
		t.Fatalf("second claim = %s, want 0", reward)
	}
}

func TestClaimInsufficientRewardLiquidity(t *testing.T) {
	bank, v, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	bank.Mint("bob", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)
	mustDeposit(t, e, "bob", 1000)

	// Lock everything into the vault.
	clk.Advance(24 * time.Hour)
	if _, err := e.CommitScheduled(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	v.AddYield(math.NewInt(100))
	clk.Advance(15 * 24 * time.Hour) // past unlock

	// Bob's withdrawal unwinds exactly its shortfall and drains the usable
	// balance to zero.
	res, err := e.Withdraw("bob")
	if err != nil {
		t.Fatalf("withdraw bob: %v", err)
	}
	if !res.Payout.Equal(math.NewInt(1050)) {
		t.Fatalf("bob payout = %s, want 1050", res.Payout)
	}
	if got := e.UsableBalance(); !got.IsZero() {
		t.Fatalf("usable = %s, want 0", got)
	}

	// Alice's reward exists on the ledger but there is nothing liquid to pay
	// it with; claim must fail rather than touch locked principal.
	if _, err := e.Claim("alice"); !errors.Is(err, ErrInsufficientRewardLiquidity) {
		t.Fatalf("claim: got %v, want ErrInsufficientRewardLiquidity", err)
	}
	assertPending(t, e, "alice", 50)

	// Recover liquidity explicitly, then the claim goes through.
	if err := e.UnstakeToTarget(math.NewInt(50)); err != nil {
		t.Fatalf("unstake to target: %v", err)
	}
	reward, err := e.Claim("alice")
	if err != nil {
		t.Fatalf("claim after unstake: %v", err)
	}
	if !reward.Equal(math.NewInt(50)) {
		t.Fatalf("reward = %s, want 50", reward)
	}
}

func TestWithdrawFailsWhileLocked(t *testing.T) {
	bank, _, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	clk.Advance(24 * time.Hour)
	if _, err := e.CommitScheduled(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// All principal is locked for two weeks; the withdrawal must fail without
	// partial effect.
	if _, err := e.Withdraw("alice"); !errors.Is(err, ErrInsufficientUnlockableLiquidity) {
		t.Fatalf("withdraw: got %v, want ErrInsufficientUnlockableLiquidity", err)
	}
	if got := e.StakeOf("alice"); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("stake after failed withdraw = %s, want 1000", got)
	}
	if got := e.TotalStaked(); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("total staked after failed withdraw = %s, want 1000", got)
	}
}

func TestSameDayWithdrawReleasesBucket(t *testing.T) {
	bank, _, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(1000))
	bank.Mint("bob", math.NewInt(1000))

	// Alice round-trips before the daily commit: her payout is funded by her
	// own uncommitted deposit, so the bucket backing it must shrink with the
	// balance.
	mustDeposit(t, e, "alice", 1000)
	if _, err := e.Withdraw("alice"); err != nil {
		t.Fatalf("withdraw alice: %v", err)
	}
	if got := e.TotalPendingUncommitted(); !got.IsZero() {
		t.Fatalf("pending uncommitted = %s, want 0 after round trip", got)
	}

	mustDeposit(t, e, "bob", 1000)
	if got := e.TotalPendingUncommitted(); !got.Equal(math.NewInt(1000)) {
		t.Fatalf("pending uncommitted = %s, want 1000", got)
	}

	// The commit must stake exactly bob's deposit, not the departed tokens.
	clk.Advance(24 * time.Hour)
	res, err := e.CommitScheduled()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !res.Committed || !res.Amount.Equal(math.NewInt(1000)) {
		t.Fatalf("commit = %+v, want committed 1000", res)
	}
	if got := len(e.Batches()); got != 1 {
		t.Fatalf("batches = %d, want 1", got)
	}
}

func TestReconcileTrimsNewestBucketFirst(t *testing.T) {
	bank, _, e, clk := newTestEngine(t, 0)
	bank.Mint("alice", math.NewInt(300))
	bank.Mint("bob", math.NewInt(500))

	mustDeposit(t, e, "bob", 500)
	clk.Advance(24 * time.Hour)
	mustDeposit(t, e, "alice", 300)

	// Alice leaves the same day she arrived: her payout trims today's bucket
	// and leaves yesterday's untouched.
	if _, err := e.Withdraw("alice"); err != nil {
		t.Fatalf("withdraw alice: %v", err)
	}
	if got := e.TotalPendingUncommitted(); !got.Equal(math.NewInt(500)) {
		t.Fatalf("pending uncommitted = %s, want 500", got)
	}

	res, err := e.CommitScheduled()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !res.Committed || !res.Amount.Equal(math.NewInt(500)) {
		t.Fatalf("commit = %+v, want committed 500 (bob's bucket)", res)
	}
}

func TestAccumulatorMonotone(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 500)
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	last := e.Ledger().AccRewardsPerShare
	for i := 0; i < 5; i++ {
		v.AddYield(math.NewInt(77))
		if err := e.Accrue(); err != nil {
			t.Fatalf("accrue %d: %v", i, err)
		}
		cur := e.Ledger().AccRewardsPerShare
		if cur.LT(last) {
			t.Fatalf("accumulator decreased: %s -> %s", last, cur)
		}
		last = cur
	}
}

func TestWithdrawFees(t *testing.T) {
	bank, v, e, _ := newTestEngine(t, 2000) // 20%
	bank.Mint("alice", math.NewInt(1000))
	mustDeposit(t, e, "alice", 1000)

	v.AddYield(math.NewInt(500))
	if err := e.Accrue(); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if got := e.FeeReserve(); !got.Equal(math.NewInt(100)) {
		t.Fatalf("fee reserve = %s, want 100", got)
	}

	withdrawn, err := e.WithdrawFees()
	if err != nil {
		t.Fatalf("withdraw fees: %v", err)
	}
	if !withdrawn.Equal(math.NewInt(100)) {
		t.Fatalf("withdrawn = %s, want 100", withdrawn)
	}
	if got := bank.BalanceOf("treasury"); !got.Equal(math.NewInt(100)) {
		t.Fatalf("treasury balance = %s, want 100", got)
	}
	if !e.FeeReserve().IsZero() {
		t.Fatal("fee reserve not cleared")
	}
}

func TestSetFeeRateBounds(t *testing.T) {
	_, _, e, _ := newTestEngine(t, 0)

	if err := e.SetFeeRate(MaxFeeRateBps + 1); !errors.Is(err, ErrFeeRateTooHigh) {
		t.Fatalf("got %v, want ErrFeeRateTooHigh", err)
	}
	if err := e.SetFeeRate(MaxFeeRateBps); err != nil {
		t.Fatalf("set max fee rate: %v", err)
	}
	if got := e.FeeRateBps(); got != MaxFeeRateBps {
		t.Fatalf("fee rate = %d, want %d", got, MaxFeeRateBps)
	}
}

func mustDeposit(t *testing.T, e *Engine, account string, amount int64) {
	t.Helper()
	if _, err := e.Deposit(account, math.NewInt(amount)); err != nil {
		t.Fatalf("deposit %s %d: %v", account, amount, err)
	}
}

func assertPending(t *testing.T, e *Engine, account string, want int64) {
	t.Helper()
	pending, err := e.PendingRewardOf(account)
	if err != nil {
		t.Fatalf("pending %s: %v", account, err)
	}
	if !pending.Equal(math.NewInt(want)) {
		t.Fatalf("pending %s = %s, want %d", account, pending, want)
	}
}
