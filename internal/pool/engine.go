package pool

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"

	"YieldPool/internal/model"
	"YieldPool/internal/recorder"
	"YieldPool/internal/token"
	"YieldPool/internal/vault"
)

const (
	// feeDenominator is the basis-point denominator for the operator fee.
	feeDenominator = 10000

	// MaxFeeRateBps bounds the configurable operator fee at 30%.
	MaxFeeRateBps = 3000

	secondsPerDay = 86400
)

// scale is the 1e18 fixed-point scale of the reward accumulator.
var scale = math.NewIntWithDecimal(1, 18)

// Engine owns the pool aggregate and runs every operation one at a time to
// completion. A failed operation rolls internal state back to the pre-call
// snapshot; the token and vault collaborators are required to be
// transactional per call.
type Engine struct {
	mu sync.Mutex

	st       *model.PoolState
	filePath string

	token token.Token
	vault vault.Vault
	addr  string // the pool's own token account

	lockTier     int
	lockDuration time.Duration

	rec recorder.Recorder
	now func() time.Time
}

// Options configures a new Engine.
type Options struct {
	StateFile   string // empty keeps state in memory only
	PoolAddr    string
	LockTier    int
	FeeRateBps  uint64
	Beneficiary string
}

// NewEngine creates an Engine, loading any persisted state from disk. The
// configured fee rate and beneficiary take effect at startup even when a
// snapshot carries older values.
func NewEngine(tok token.Token, v vault.Vault, rec recorder.Recorder, opts Options) (*Engine, error) {
	if opts.PoolAddr == "" {
		return nil, fmt.Errorf("pool address is required")
	}
	if opts.FeeRateBps > MaxFeeRateBps {
		return nil, ErrFeeRateTooHigh
	}
	st, err := LoadState(opts.StateFile)
	if err != nil {
		return nil, fmt.Errorf("load pool state: %w", err)
	}
	st.Normalize()
	st.FeeRateBps = opts.FeeRateBps
	st.Beneficiary = opts.Beneficiary

	lockDuration, err := v.LockDurationFor(opts.LockTier)
	if err != nil {
		return nil, fmt.Errorf("resolve lock duration: %w", err)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}

	return &Engine{
		st:           st,
		filePath:     opts.StateFile,
		token:        tok,
		vault:        v,
		addr:         opts.PoolAddr,
		lockTier:     opts.LockTier,
		lockDuration: lockDuration,
		rec:          rec,
		now:          time.Now,
	}, nil
}

// Deposit pulls amount from the depositor's account, credits its stake at the
// post-accrual exchange rate, and schedules the raw tokens into the current
// day's pending bucket. Returns the amount actually received.
func (e *Engine) Deposit(account string, amount math.Int) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return math.ZeroInt(), ErrZeroDeposit
	}
	// A deposit that rounds to zero share units would be permanently
	// unrewarded; reject it up front.
	controlled := e.totalControlled()
	if controlled.IsPositive() && amount.Mul(scale).Quo(controlled).IsZero() {
		return math.ZeroInt(), ErrDepositTooSmall
	}

	snap := e.st.Clone()
	received, day, err := e.deposit(account, amount)
	if err != nil {
		e.st = snap
		return math.ZeroInt(), err
	}
	e.persist()
	e.logRecord(e.rec.RecordDeposit(&recorder.DepositEvent{
		Account: account,
		Amount:  received.String(),
		Day:     day,
	}))
	return received, nil
}

func (e *Engine) deposit(account string, amount math.Int) (math.Int, int64, error) {
	// Checkpoint existing stakers first so the new deposit cannot claim yield
	// accrued before it arrived.
	if err := e.accrue(); err != nil {
		return math.ZeroInt(), 0, err
	}

	pre := e.token.BalanceOf(e.addr)
	if err := e.token.Transfer(account, e.addr, amount); err != nil {
		return math.ZeroInt(), 0, fmt.Errorf("pull deposit: %w", err)
	}
	received := e.token.BalanceOf(e.addr).Sub(pre)
	if !received.IsPositive() {
		return math.ZeroInt(), 0, ErrZeroDeposit
	}

	acct := e.account(account)
	acct.StakePrincipal = acct.StakePrincipal.Add(received)
	e.st.Ledger.TotalStaked = e.st.Ledger.TotalStaked.Add(received)
	acct.RewardDebt = acct.StakePrincipal.Mul(e.st.Ledger.AccRewardsPerShare).Quo(scale)

	day := dayOf(e.now())
	e.st.Buckets[day] = e.bucket(day).Add(received)
	return received, day, nil
}

// WithdrawResult reports a completed withdrawal.
type WithdrawResult struct {
	Principal math.Int
	Reward    math.Int
	Payout    math.Int
}

// Withdraw pays out the account's full principal plus its outstanding reward,
// unwinding locked batches if the usable balance does not cover the payout.
func (e *Engine) Withdraw(account string) (*WithdrawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, ok := e.st.Accounts[account]
	if !ok || !acct.StakePrincipal.IsPositive() {
		return nil, ErrNoDeposit
	}

	snap := e.st.Clone()
	res, err := e.withdraw(account)
	if err != nil {
		e.st = snap
		return nil, err
	}
	e.persist()
	e.logRecord(e.rec.RecordWithdrawal(&recorder.WithdrawalEvent{
		Account:   account,
		Principal: res.Principal.String(),
		Reward:    res.Reward.String(),
	}))
	return res, nil
}

func (e *Engine) withdraw(account string) (*WithdrawResult, error) {
	// Accrue before zeroing the stake so the departing staker participates in
	// the final distribution.
	if err := e.accrue(); err != nil {
		return nil, err
	}

	acct := e.st.Accounts[account]
	principal := acct.StakePrincipal
	reward, err := e.pendingReward(acct)
	if err != nil {
		return nil, err
	}
	payout := principal.Add(reward)

	if usable := e.usableBalance(); usable.LT(payout) {
		if err := e.unstakeToTarget(payout.Sub(usable)); err != nil {
			return nil, err
		}
	}

	// Commit effects before the payout transfer.
	acct.StakePrincipal = math.ZeroInt()
	acct.RewardDebt = math.ZeroInt()
	e.st.Ledger.TotalStaked = e.st.Ledger.TotalStaked.Sub(principal)
	if e.st.Ledger.TotalStaked.IsNegative() {
		return nil, fmt.Errorf("%w: total staked went negative", ErrInvariantViolation)
	}

	if err := e.token.Transfer(e.addr, account, payout); err != nil {
		return nil, fmt.Errorf("payout: %w", err)
	}
	e.reconcileBuckets()
	return &WithdrawResult{Principal: principal, Reward: reward, Payout: payout}, nil
}

// Claim pays out the account's outstanding reward, leaving principal
// untouched. Claim never unwinds locked principal: if the usable balance
// cannot cover the reward the claim fails and the caller retries later.
func (e *Engine) Claim(account string) (math.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, ok := e.st.Accounts[account]
	if !ok || !acct.StakePrincipal.IsPositive() {
		return math.ZeroInt(), ErrNoDeposit
	}

	snap := e.st.Clone()
	reward, err := e.claim(account)
	if err != nil {
		e.st = snap
		return math.ZeroInt(), err
	}
	e.persist()
	if reward.IsPositive() {
		e.logRecord(e.rec.RecordClaim(&recorder.ClaimEvent{
			Account: account,
			Reward:  reward.String(),
		}))
	}
	return reward, nil
}

func (e *Engine) claim(account string) (math.Int, error) {
	if err := e.accrue(); err != nil {
		return math.ZeroInt(), err
	}

	acct := e.st.Accounts[account]
	reward, err := e.pendingReward(acct)
	if err != nil {
		return math.ZeroInt(), err
	}
	if reward.IsZero() {
		return math.ZeroInt(), nil
	}
	if reward.GT(e.usableBalance()) {
		return math.ZeroInt(), ErrInsufficientRewardLiquidity
	}

	acct.RewardDebt = acct.StakePrincipal.Mul(e.st.Ledger.AccRewardsPerShare).Quo(scale)
	if err := e.token.Transfer(e.addr, account, reward); err != nil {
		return math.ZeroInt(), fmt.Errorf("pay reward: %w", err)
	}
	e.reconcileBuckets()
	return reward, nil
}

// CommitResult reports one daily commit.
type CommitResult struct {
	Committed   bool
	Amount      math.Int
	UnlockAt    int64
	VaultHandle string
}

// CommitScheduled sums every pending bucket strictly before today, clears
// them, and forwards the total to the vault as one new locked batch. The
// current day's deposits are deliberately excluded. Calling it again the same
// day is a no-op, as is calling it while the pool is paused (buckets then stay
// pending).
func (e *Engine) CommitScheduled() (*CommitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Paused {
		log.Println("[WARN] commit skipped: pool is paused")
		return &CommitResult{Amount: math.ZeroInt()}, nil
	}

	today := dayOf(e.now())
	sum := math.ZeroInt()
	for day, amt := range e.st.Buckets {
		if day < today {
			sum = sum.Add(amt)
		}
	}
	if !sum.IsPositive() {
		return &CommitResult{Amount: math.ZeroInt()}, nil
	}

	snap := e.st.Clone()
	res, err := e.commit(today, sum)
	if err != nil {
		e.st = snap
		return nil, err
	}
	e.persist()
	e.logRecord(e.rec.RecordCommit(&recorder.CommitEvent{
		Amount:      res.Amount.String(),
		UnlockAt:    res.UnlockAt,
		VaultHandle: res.VaultHandle,
	}))
	return res, nil
}

func (e *Engine) commit(today int64, sum math.Int) (*CommitResult, error) {
	for day := range e.st.Buckets {
		if day < today {
			delete(e.st.Buckets, day)
		}
	}

	handle, err := e.vault.Deposit(sum, e.lockTier)
	if err != nil {
		return nil, fmt.Errorf("stake batch: %w", err)
	}

	// Commits happen in non-decreasing wall-clock order and share one lock
	// duration, so appending keeps the batch sequence unlockAt-sorted.
	unlockAt := e.now().Add(e.lockDuration).Unix()
	e.st.Batches = append(e.st.Batches, &model.StakeBatch{
		Amount:      sum,
		UnlockAt:    unlockAt,
		VaultHandle: handle,
	})
	return &CommitResult{Committed: true, Amount: sum, UnlockAt: unlockAt, VaultHandle: handle}, nil
}

// Accrue harvests pending yield and folds it into the reward accumulator.
// Exposed for the scheduler's periodic harvest task.
func (e *Engine) Accrue() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.st.Clone()
	if err := e.accrue(); err != nil {
		e.st = snap
		return err
	}
	e.persist()
	return nil
}

// accrue is a no-op while nobody is staked: yield harvested during such a
// window is not distributed and sits as unattributed usable balance.
func (e *Engine) accrue() error {
	if !e.st.Ledger.TotalStaked.IsPositive() {
		return nil
	}
	pre := e.token.BalanceOf(e.addr)
	if err := e.vault.HarvestAll(); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	earned := e.token.BalanceOf(e.addr).Sub(pre)
	if !earned.IsPositive() {
		return nil
	}
	e.absorbYield(earned)
	return nil
}

// absorbYield splits one harvest event into the operator fee and the share
// accumulator increment.
func (e *Engine) absorbYield(earned math.Int) {
	fee := earned.MulRaw(int64(e.st.FeeRateBps)).QuoRaw(feeDenominator)
	e.st.Ledger.FeeReserve = e.st.Ledger.FeeReserve.Add(fee)

	net := earned.Sub(fee)
	if net.IsPositive() && e.st.Ledger.TotalStaked.IsPositive() {
		e.st.Ledger.AccRewardsPerShare = e.st.Ledger.AccRewardsPerShare.
			Add(net.Mul(scale).Quo(e.st.Ledger.TotalStaked))
		e.st.Ledger.TotalRewardsEarned = e.st.Ledger.TotalRewardsEarned.Add(net)
	}

	e.logRecord(e.rec.RecordHarvest(&recorder.HarvestEvent{
		Net: net.String(),
		Fee: fee.String(),
	}))
}

// pendingReward computes the account's outstanding reward. A negative result
// is a fatal accounting bug, never an expected condition.
func (e *Engine) pendingReward(acct *model.Account) (math.Int, error) {
	reward := acct.StakePrincipal.Mul(e.st.Ledger.AccRewardsPerShare).Quo(scale).
		Sub(acct.RewardDebt)
	if reward.IsNegative() {
		return math.ZeroInt(), fmt.Errorf("%w: negative pending reward %s", ErrInvariantViolation, reward)
	}
	return reward, nil
}

// usableBalance is what the pool physically holds minus the earmarked fee
// reserve.
func (e *Engine) usableBalance() math.Int {
	usable := e.token.BalanceOf(e.addr).Sub(e.st.Ledger.FeeReserve)
	if usable.IsNegative() {
		return math.ZeroInt()
	}
	return usable
}

// totalControlled is usable balance plus all locked principal, excluding
// unharvested yield still inside the vault.
func (e *Engine) totalControlled() math.Int {
	total := e.usableBalance()
	for _, b := range e.st.Batches {
		total = total.Add(b.Amount)
	}
	return total
}

// reconcileBuckets clamps the pending-bucket tally to what the pool actually
// holds. A payout can be funded by tokens that were scheduled but not yet
// committed; the buckets backing those tokens must shrink with the balance or
// every later commit would try to stake more than the pool has. The shortfall
// comes off the newest day first, where the departed principal was scheduled
// last.
func (e *Engine) reconcileBuckets() {
	total := math.ZeroInt()
	for _, amt := range e.st.Buckets {
		total = total.Add(amt)
	}
	excess := total.Sub(e.usableBalance())
	if !excess.IsPositive() {
		return
	}

	days := make([]int64, 0, len(e.st.Buckets))
	for day := range e.st.Buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	for _, day := range days {
		if !excess.IsPositive() {
			break
		}
		cut := math.MinInt(excess, e.st.Buckets[day])
		rest := e.st.Buckets[day].Sub(cut)
		if rest.IsZero() {
			delete(e.st.Buckets, day)
		} else {
			e.st.Buckets[day] = rest
		}
		excess = excess.Sub(cut)
	}
}

func (e *Engine) account(addr string) *model.Account {
	if acct, ok := e.st.Accounts[addr]; ok {
		return acct
	}
	acct := &model.Account{
		StakePrincipal: math.ZeroInt(),
		RewardDebt:     math.ZeroInt(),
	}
	e.st.Accounts[addr] = acct
	return acct
}

func (e *Engine) bucket(day int64) math.Int {
	if amt, ok := e.st.Buckets[day]; ok {
		return amt
	}
	return math.ZeroInt()
}

func (e *Engine) persist() {
	if e.filePath == "" {
		return
	}
	if err := SaveState(e.filePath, e.st); err != nil {
		log.Printf("[ERROR] failed to save pool state: %v", err)
	}
}

func (e *Engine) logRecord(err error) {
	if err != nil {
		log.Printf("[ERROR] record event: %v", err)
	}
}

func dayOf(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}
