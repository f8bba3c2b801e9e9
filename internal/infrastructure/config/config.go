// Package config loads engine configuration from defaults, an optional
// YAML file and CLAIMS_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`

	Engine EngineConfig `koanf:"engine"`
	Pool   PoolConfig   `koanf:"pool"`
}

type ServerConfig struct {
	MetricsPort     int           `koanf:"metrics_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// EngineConfig carries the claim lifecycle and fraud thresholds.
type EngineConfig struct {
	Currency string `koanf:"currency"`

	ReviewThreshold     int    `koanf:"review_threshold"`
	AutoRejectThreshold int    `koanf:"auto_reject_threshold"`
	AutoApproveCeiling  int    `koanf:"auto_approve_ceiling"`
	SmallClaimLimit     string `koanf:"small_claim_limit"`

	RecentClaimLimit  int           `koanf:"recent_claim_limit"`
	RecentClaimWindow time.Duration `koanf:"recent_claim_window"`

	VotingPeriod time.Duration `koanf:"voting_period"`
	MinVotes     int           `koanf:"min_votes"`

	DisputeWindow       time.Duration `koanf:"dispute_window"`
	ArbitrationDeadline time.Duration `koanf:"arbitration_deadline"`
	ArbitrationFeeBP    int64         `koanf:"arbitration_fee_bp"`
	ArbitratorShareBP   int64         `koanf:"arbitrator_share_bp"`
	PoolShareBP         int64         `koanf:"pool_share_bp"`
	TreasuryShareBP     int64         `koanf:"treasury_share_bp"`

	UseBayesianStage bool          `koanf:"use_bayesian_stage"`
	ScoreCacheTTL    time.Duration `koanf:"score_cache_ttl"`

	// Ledger endpoints for fee and payout transfers. Generated at startup
	// when unset; production deployments pin them.
	PoolAccount     string `koanf:"pool_account"`
	TreasuryAccount string `koanf:"treasury_account"`
}

// PoolConfig carries the solvency knobs.
type PoolConfig struct {
	TargetReserveRatioBP int64  `koanf:"target_reserve_ratio_bp"`
	RiskBufferBP         int64  `koanf:"risk_buffer_bp"`
	MinCapital           string `koanf:"min_capital"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			MetricsPort:     9090,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Engine: EngineConfig{
			Currency:            "USD",
			ReviewThreshold:     40,
			AutoRejectThreshold: 85,
			AutoApproveCeiling:  20,
			SmallClaimLimit:     "1000.00",
			RecentClaimLimit:    3,
			RecentClaimWindow:   30 * 24 * time.Hour,
			VotingPeriod:        72 * time.Hour,
			MinVotes:            5,
			DisputeWindow:       7 * 24 * time.Hour,
			ArbitrationDeadline: 14 * 24 * time.Hour,
			ArbitrationFeeBP:    500,
			ArbitratorShareBP:   6000,
			PoolShareBP:         3000,
			TreasuryShareBP:     1000,
			UseBayesianStage:    true,
			ScoreCacheTTL:       time.Hour,
		},
		Pool: PoolConfig{
			TargetReserveRatioBP: 15000,
			RiskBufferBP:         2000,
			MinCapital:           "10000.00",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())

	if err := k.Load(env.Provider("CLAIMS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CLAIMS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.AutoRejectThreshold <= c.Engine.ReviewThreshold {
		return fmt.Errorf("auto_reject_threshold must exceed review_threshold")
	}
	if c.Engine.AutoApproveCeiling > c.Engine.ReviewThreshold {
		return fmt.Errorf("auto_approve_ceiling cannot exceed review_threshold")
	}
	shares := c.Engine.ArbitratorShareBP + c.Engine.PoolShareBP + c.Engine.TreasuryShareBP
	if shares != 10000 {
		return fmt.Errorf("arbitration fee shares must sum to 10000 basis points, got %d", shares)
	}
	return nil
}
