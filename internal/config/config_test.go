package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool.Address != "pool" {
		t.Errorf("address = %q, want pool", cfg.Pool.Address)
	}
	if cfg.Schedule.CommitCron == "" {
		t.Error("commit cron default missing")
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q, want :8080", cfg.API.ListenAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
pool:
  address: "my-pool"
  fee_rate_bps: 500
api:
  listen_addr: ":9090"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POOL_FEE_RATE_BPS", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool.Address != "my-pool" {
		t.Errorf("address = %q, want my-pool", cfg.Pool.Address)
	}
	if cfg.Pool.FeeRateBps != 1500 {
		t.Errorf("fee rate = %d, want 1500 (env wins)", cfg.Pool.FeeRateBps)
	}
	if cfg.API.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q, want :9090", cfg.API.ListenAddr)
	}
}

func TestValidateRejectsExcessiveFee(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Pool.FeeRateBps = 9999
	if err := cfg.Validate(); err == nil {
		t.Error("expected fee rate validation error")
	}
}
