package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"YieldPool/internal/pool"
)

// Config holds all application configuration.
type Config struct {
	Pool struct {
		Address     string `yaml:"address"`
		Beneficiary string `yaml:"beneficiary"`
		FeeRateBps  uint64 `yaml:"fee_rate_bps"`
		LockTier    int    `yaml:"lock_tier"`
		StateFile   string `yaml:"state_file"`
	} `yaml:"pool"`
	Vault struct {
		BaseURL string `yaml:"base_url"` // empty selects the in-process simulator
		APIKey  string `yaml:"api_key"`
	} `yaml:"vault"`
	Schedule struct {
		CommitCron   string `yaml:"commit_cron"`
		HarvestCron  string `yaml:"harvest_cron"`
		SnapshotCron string `yaml:"snapshot_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	API struct {
		ListenAddr string `yaml:"listen_addr"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"api"`
	Alert struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"alert"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("POOL_ADDRESS"); v != "" {
		cfg.Pool.Address = v
	}
	if v := os.Getenv("POOL_BENEFICIARY"); v != "" {
		cfg.Pool.Beneficiary = v
	}
	if v := os.Getenv("POOL_FEE_RATE_BPS"); v != "" {
		if bps, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Pool.FeeRateBps = bps
		}
	}
	if v := os.Getenv("VAULT_BASE_URL"); v != "" {
		cfg.Vault.BaseURL = v
	}
	if v := os.Getenv("VAULT_API_KEY"); v != "" {
		cfg.Vault.APIKey = v
	}
	if v := os.Getenv("CRON_COMMIT"); v != "" {
		cfg.Schedule.CommitCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("API_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("API_ADMIN_TOKEN"); v != "" {
		cfg.API.AdminToken = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		cfg.Alert.WebhookURL = v
	}

	// Defaults
	if cfg.Pool.Address == "" {
		cfg.Pool.Address = "pool"
	}
	if cfg.Pool.StateFile == "" {
		cfg.Pool.StateFile = "data/pool_state.json"
	}
	if cfg.Schedule.CommitCron == "" {
		// Shortly after midnight UTC so every strictly-past bucket qualifies.
		cfg.Schedule.CommitCron = "0 10 0 * * *"
	}
	if cfg.Schedule.HarvestCron == "" {
		cfg.Schedule.HarvestCron = "0 0 * * * *"
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 */5 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/yield_pool.db"
	}
	if cfg.API.ListenAddr == "" {
		cfg.API.ListenAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and within bounds.
func (c *Config) Validate() error {
	if c.Pool.Address == "" {
		return fmt.Errorf("pool.address is required")
	}
	if c.Pool.FeeRateBps > pool.MaxFeeRateBps {
		return fmt.Errorf("pool.fee_rate_bps must not exceed %d", pool.MaxFeeRateBps)
	}
	if c.Schedule.CommitCron == "" {
		return fmt.Errorf("schedule.commit_cron is required")
	}
	return nil
}
