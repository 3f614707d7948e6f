package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"YieldPool/internal/notifier"
	"YieldPool/internal/pool"
)

// Scheduler manages the pool's cron tasks: the daily batch commit, the
// periodic harvest, and the periodic state snapshot.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   *pool.Engine
	Notifier *notifier.WebhookNotifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, engine *pool.Engine, wn *notifier.WebhookNotifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   engine,
		Notifier: wn,
		Ctx:      ctx,
	}
}

// RegisterAll registers the commit, harvest, and snapshot tasks.
func (s *Scheduler) RegisterAll(commitCron, harvestCron, snapshotCron string) error {
	if _, err := s.Cron.AddFunc(commitCron, s.commitTask); err != nil {
		return fmt.Errorf("register commit task: %w", err)
	}
	if _, err := s.Cron.AddFunc(harvestCron, s.harvestTask); err != nil {
		return fmt.Errorf("register harvest task: %w", err)
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunCommitNow executes the daily commit immediately (manual trigger /
// RUN_ON_START).
func (s *Scheduler) RunCommitNow() {
	s.commitTask()
}

func (s *Scheduler) commitTask() {
	log.Println("[INFO] running daily commit")
	res, err := s.Engine.CommitScheduled()
	if err != nil {
		log.Printf("[ERROR] daily commit: %v", err)
		s.tryNotify("commit-failed", err.Error())
		return
	}
	if !res.Committed {
		log.Println("[INFO] daily commit: nothing to commit")
		return
	}
	log.Printf("[INFO] committed batch: amount=%s unlock_at=%d handle=%s",
		res.Amount, res.UnlockAt, res.VaultHandle)
}

func (s *Scheduler) harvestTask() {
	log.Println("[INFO] running harvest")
	if err := s.Engine.Accrue(); err != nil {
		log.Printf("[ERROR] harvest: %v", err)
		s.tryNotify("harvest-failed", err.Error())
	}
}

func (s *Scheduler) snapshotTask() {
	s.Engine.SaveState()
}

func (s *Scheduler) tryNotify(event, detail string) {
	if err := s.Notifier.Notify(s.Ctx, event, detail); err != nil {
		log.Printf("[ERROR] send alert: %v", err)
	}
}
