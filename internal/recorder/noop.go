package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDeposit(_ *DepositEvent) error       { return nil }
func (n *NoopRecorder) RecordWithdrawal(_ *WithdrawalEvent) error { return nil }
func (n *NoopRecorder) RecordClaim(_ *ClaimEvent) error           { return nil }
func (n *NoopRecorder) RecordCommit(_ *CommitEvent) error         { return nil }
func (n *NoopRecorder) RecordHarvest(_ *HarvestEvent) error       { return nil }
func (n *NoopRecorder) RecordAdmin(_ *AdminEvent) error           { return nil }
func (n *NoopRecorder) RecentHarvests(_ int) ([]HarvestSample, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
