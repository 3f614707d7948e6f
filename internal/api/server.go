package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/gorilla/mux"

	"YieldPool/internal/metrics"
	"YieldPool/internal/pool"
	"YieldPool/internal/recorder"
)

// Server exposes the pool engine over HTTP. User operations live under /v1,
// operator actions under /v1/admin behind a bearer token. An empty configured
// token disables the admin surface entirely.
type Server struct {
	engine     *pool.Engine
	rec        recorder.Recorder
	adminToken string
	srv        *http.Server
}

// NewServer creates an API server bound to addr.
func NewServer(addr string, engine *pool.Engine, rec recorder.Recorder, adminToken string) *Server {
	s := &Server{
		engine:     engine,
		rec:        rec,
		adminToken: adminToken,
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/deposit", s.handleDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/claim", s.handleClaim).Methods(http.MethodPost)
	v1.HandleFunc("/commit", s.handleCommit).Methods(http.MethodPost)
	v1.HandleFunc("/unstake", s.handleUnstakeToTarget).Methods(http.MethodPost)
	v1.HandleFunc("/unstake/{index:[0-9]+}", s.handleUnstakeBatch).Methods(http.MethodPost)
	v1.HandleFunc("/sweep", s.handleSweep).Methods(http.MethodPost)
	v1.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	v1.HandleFunc("/balances/{account}", s.handleAccountBalance).Methods(http.MethodGet)
	v1.HandleFunc("/batches", s.handleBatches).Methods(http.MethodGet)
	v1.HandleFunc("/projections", s.handleProjections).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminOnly)
	admin.HandleFunc("/fee-rate", s.handleSetFeeRate).Methods(http.MethodPost)
	admin.HandleFunc("/pause", s.handleSetPaused).Methods(http.MethodPost)
	admin.HandleFunc("/beneficiary", s.handleSetBeneficiary).Methods(http.MethodPost)
	admin.HandleFunc("/withdraw-fees", s.handleWithdrawFees).Methods(http.MethodPost)
	admin.HandleFunc("/emergency-withdraw", s.handleEmergencyWithdraw).Methods(http.MethodPost)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[INFO] api listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes the listener gracefully.
func (s *Server) Shutdown() error {
	return s.srv.Close()
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("Authorization") != "Bearer "+s.adminToken {
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type amountRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := math.NewIntFromString(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid amount"))
		return
	}
	received, err := s.engine.Deposit(req.Account, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"received": received.String()})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.engine.Withdraw(req.Account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"principal": res.Principal.String(),
		"reward":    res.Reward.String(),
		"payout":    res.Payout.String(),
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if !decode(w, r, &req) {
		return
	}
	reward, err := s.engine.Claim(req.Account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reward": reward.String()})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.CommitScheduled()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := map[string]any{
		"committed": res.Committed,
		"amount":    res.Amount.String(),
	}
	if res.Committed {
		resp["unlock_at"] = res.UnlockAt
		resp["vault_handle"] = res.VaultHandle
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnstakeToTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if !decode(w, r, &req) {
		return
	}
	target, ok := math.NewIntFromString(req.Target)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid target"))
		return
	}
	if err := s.engine.UnstakeToTarget(target); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"usable": s.engine.UsableBalance().String()})
}

func (s *Server) handleUnstakeBatch(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid batch index"))
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	amount, ok := math.NewIntFromString(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid amount"))
		return
	}
	released, err := s.engine.UnstakeBatch(index, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"released": released.String()})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	released, err := s.engine.SweepUnlockable()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"released": released.String()})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	ledger := s.engine.Ledger()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_staked":          ledger.TotalStaked.String(),
		"acc_rewards_per_share": ledger.AccRewardsPerShare.String(),
		"total_rewards_earned":  ledger.TotalRewardsEarned.String(),
		"fee_reserve":           ledger.FeeReserve.String(),
		"usable":                s.engine.UsableBalance().String(),
		"controlled":            s.engine.TotalControlled().String(),
		"pending_uncommitted":   s.engine.TotalPendingUncommitted().String(),
		"fee_rate_bps":          s.engine.FeeRateBps(),
		"paused":                s.engine.Paused(),
	})
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	pending, err := s.engine.PendingRewardOf(account)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"stake":          s.engine.StakeOf(account).String(),
		"pending_reward": pending.String(),
	})
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches := s.engine.Batches()
	out := make([]map[string]any, len(batches))
	for i, b := range batches {
		out[i] = map[string]any{
			"amount":       b.Amount.String(),
			"unlock_at":    b.UnlockAt,
			"vault_handle": b.VaultHandle,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	withdrawable, err := s.engine.TotalWithdrawable()
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"total_withdrawable": withdrawable.String(),
		"total_controlled":   s.engine.TotalControlled().String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	window := 7
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid window_days"))
			return
		}
		window = n
	}
	samples, err := s.rec.RecentHarvests(window * 48)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	stats, err := metrics.TrailingStats(samples, s.engine.TotalControlled(), window, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeeRateBps uint64 `json:"fee_rate_bps"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetFeeRate(req.FeeRateBps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"fee_rate_bps": req.FeeRateBps})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.engine.SetPaused(req.Paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleSetBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Beneficiary string `json:"beneficiary"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.SetBeneficiary(req.Beneficiary); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"beneficiary": req.Beneficiary})
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	amount, err := s.engine.WithdrawFees()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": amount.String()})
}

func (s *Server) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.engine.EmergencyWithdraw()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("[WARN] emergency withdraw executed: %s", amount)
	writeJSON(w, http.StatusOK, map[string]string{"withdrawn": amount.String()})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes:
// validation errors are 400, state errors are 409, invariant violations 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrZeroDeposit),
		errors.Is(err, pool.ErrDepositTooSmall),
		errors.Is(err, pool.ErrZeroUnstake),
		errors.Is(err, pool.ErrFeeRateTooHigh),
		errors.Is(err, pool.ErrNoBeneficiary):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pool.ErrNoDeposit),
		errors.Is(err, pool.ErrInsufficientRewardLiquidity),
		errors.Is(err, pool.ErrInsufficientUnlockableLiquidity),
		errors.Is(err, pool.ErrBatchIndexOutOfRange),
		errors.Is(err, pool.ErrBatchStillLocked):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, pool.ErrInvariantViolation):
		log.Printf("[ERROR] invariant violation: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] write response: %v", err)
	}
}
