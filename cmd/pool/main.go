package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"YieldPool/internal/api"
	"YieldPool/internal/config"
	"YieldPool/internal/notifier"
	"YieldPool/internal/pool"
	"YieldPool/internal/recorder"
	"YieldPool/internal/scheduler"
	"YieldPool/internal/token"
	"YieldPool/internal/vault"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] YieldPool starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init token ledger and vault
	bank := token.NewBank()
	var vlt vault.Vault
	if cfg.Vault.BaseURL != "" {
		vlt = vault.NewClient(cfg.Vault.BaseURL, cfg.Vault.APIKey)
	} else {
		vlt = vault.NewSimVault(bank, "vault", cfg.Pool.Address)
	}
	log.Printf("[INFO] vault backend: %s", vlt.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init pool engine
	engine, err := pool.NewEngine(bank, vlt, rec, pool.Options{
		StateFile:   cfg.Pool.StateFile,
		PoolAddr:    cfg.Pool.Address,
		LockTier:    cfg.Pool.LockTier,
		FeeRateBps:  cfg.Pool.FeeRateBps,
		Beneficiary: cfg.Pool.Beneficiary,
	})
	if err != nil {
		log.Fatalf("[FATAL] init pool engine: %v", err)
	}

	// Init alert notifier
	wn := notifier.NewWebhookNotifier(cfg.Alert.WebhookURL)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, engine, wn)
	if err := sched.RegisterAll(cfg.Schedule.CommitCron, cfg.Schedule.HarvestCron, cfg.Schedule.SnapshotCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start API server
	srv := api.NewServer(cfg.API.ListenAddr, engine, rec, cfg.API.AdminToken)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("[FATAL] api server: %v", err)
		}
	}()

	// Optional: run commit immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing daily commit now")
		go sched.RunCommitNow()
	}

	log.Println("[INFO] YieldPool is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("[ERROR] api shutdown: %v", err)
	}
	engine.SaveState()
	cancel()
	log.Println("[INFO] YieldPool stopped")
}
