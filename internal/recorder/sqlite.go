package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists pool events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read while
	// the pool writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deposits (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			account   TEXT NOT NULL,
			amount    TEXT NOT NULL,
			day       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deposits_ts ON deposits(timestamp)`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			account   TEXT NOT NULL,
			principal TEXT NOT NULL,
			reward    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_ts ON withdrawals(timestamp)`,

		`CREATE TABLE IF NOT EXISTS claims (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			account   TEXT NOT NULL,
			reward    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_ts ON claims(timestamp)`,

		`CREATE TABLE IF NOT EXISTS batch_commits (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			amount       TEXT NOT NULL,
			unlock_at    INTEGER NOT NULL,
			vault_handle TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_ts ON batch_commits(timestamp)`,

		`CREATE TABLE IF NOT EXISTS harvests (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			net       TEXT NOT NULL,
			fee       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_harvests_ts ON harvests(timestamp)`,

		`CREATE TABLE IF NOT EXISTS admin_actions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			action    TEXT NOT NULL,
			detail    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_ts ON admin_actions(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDeposit(evt *DepositEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO deposits (timestamp, account, amount, day) VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Account, evt.Amount, evt.Day)
	return err
}

func (r *SQLiteRecorder) RecordWithdrawal(evt *WithdrawalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO withdrawals (timestamp, account, principal, reward) VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Account, evt.Principal, evt.Reward)
	return err
}

func (r *SQLiteRecorder) RecordClaim(evt *ClaimEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO claims (timestamp, account, reward) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Account, evt.Reward)
	return err
}

func (r *SQLiteRecorder) RecordCommit(evt *CommitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO batch_commits (timestamp, amount, unlock_at, vault_handle) VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Amount, evt.UnlockAt, evt.VaultHandle)
	return err
}

func (r *SQLiteRecorder) RecordHarvest(evt *HarvestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO harvests (timestamp, net, fee) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Net, evt.Fee)
	return err
}

func (r *SQLiteRecorder) RecordAdmin(evt *AdminEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO admin_actions (timestamp, action, detail) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Action, evt.Detail)
	return err
}

// RecentHarvests returns up to limit harvest rows, newest first.
func (r *SQLiteRecorder) RecentHarvests(limit int) ([]HarvestSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, net FROM harvests ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []HarvestSample
	for rows.Next() {
		var s HarvestSample
		if err := rows.Scan(&s.Timestamp, &s.Net); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
