package recorder

// DepositEvent records an accepted deposit. Amounts are decimal strings to
// keep full precision in storage.
type DepositEvent struct {
	Account string
	Amount  string
	Day     int64 // bucket day number the deposit was scheduled into
}

// WithdrawalEvent records a completed withdrawal of principal plus reward.
type WithdrawalEvent struct {
	Account   string
	Principal string
	Reward    string
}

// ClaimEvent records a completed reward claim.
type ClaimEvent struct {
	Account string
	Reward  string
}

// CommitEvent records one committed stake batch.
type CommitEvent struct {
	Amount      string
	UnlockAt    int64
	VaultHandle string
}

// HarvestEvent records one yield harvest split into net and fee portions.
type HarvestEvent struct {
	Net string
	Fee string
}

// AdminEvent records an operator-surface action.
type AdminEvent struct {
	Action string // "SET_FEE_RATE", "SET_PAUSED", "SET_BENEFICIARY", "WITHDRAW_FEES", "EMERGENCY_WITHDRAW"
	Detail string
}

// HarvestSample is a stored harvest row used for trailing yield estimation.
type HarvestSample struct {
	Timestamp int64
	Net       string
}

// Recorder persists the pool's observable side effects for analysis.
type Recorder interface {
	RecordDeposit(evt *DepositEvent) error
	RecordWithdrawal(evt *WithdrawalEvent) error
	RecordClaim(evt *ClaimEvent) error
	RecordCommit(evt *CommitEvent) error
	RecordHarvest(evt *HarvestEvent) error
	RecordAdmin(evt *AdminEvent) error
	RecentHarvests(limit int) ([]HarvestSample, error)
	Close() error
}
