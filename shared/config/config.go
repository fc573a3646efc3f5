// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration shared by the platform services.
// Resolution order: built-in defaults, then the optional YAML config file,
// then environment variables. Environment always wins so chart-injected
// values override everything.
type Config struct {
	Port string `yaml:"port"`

	// BrokerURL is the amqp:// connection string. Empty selects the
	// in-memory broker (local single-binary mode and tests).
	BrokerURL string `yaml:"broker_url"`

	// MongoURI is the Cosmos/MongoDB connection string. Empty selects the
	// in-memory stores.
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	// RedisURL backs idempotency and alert dedup. Empty selects the
	// in-memory fallbacks.
	RedisURL string `yaml:"redis_url"`

	// JWTSecret enables bearer auth on the tool servers when set.
	JWTSecret string `yaml:"jwt_secret"`

	// KeyVaultURL enables Azure Key Vault secret resolution when set.
	KeyVaultURL string `yaml:"key_vault_url"`

	FoundryEndpoint string `yaml:"foundry_endpoint"`
	FoundryAPIKey   string `yaml:"foundry_api_key"`

	ContractsURL string `yaml:"contracts_url"`
	RiskURL      string `yaml:"risk_url"`
	MarketURL    string `yaml:"market_url"`

	FXVaRThreshold       float64 `yaml:"fx_var_threshold"`
	IRDv01Threshold      float64 `yaml:"ir_dv01_threshold"`
	MarketShockThreshold float64 `yaml:"market_shock_threshold_pct"`
	VolatilitySpikeLimit float64 `yaml:"volatility_spike_limit"`

	MarketPollInterval time.Duration `yaml:"market_poll_interval"`

	WorkerConcurrency int `yaml:"worker_concurrency"`
	MaxJobAttempts    int `yaml:"max_job_attempts"`
}

// defaultConfigPaths are checked in order when RISK_CONFIG_FILE is unset.
var defaultConfigPaths = []string{
	"./risk-sentinel.yaml",
	"./config/risk-sentinel.yaml",
	"/etc/risk-sentinel/config.yaml",
}

// Defaults returns the built-in configuration. Thresholds mirror the
// orchestrator's deployment defaults: $100k FX VaR, $50k DV01, 2% spot
// shock, 15% volatility spike.
func Defaults() *Config {
	return &Config{
		Port:                 "8080",
		MongoDatabase:        "risksentinel",
		ContractsURL:         "http://mcp-contracts.tools.svc.cluster.local:8000",
		RiskURL:              "http://mcp-risk.tools.svc.cluster.local:8000",
		MarketURL:            "http://mcp-market.tools.svc.cluster.local:8000",
		FXVaRThreshold:       100000,
		IRDv01Threshold:      50000,
		MarketShockThreshold: 2.0,
		VolatilitySpikeLimit: 0.15,
		MarketPollInterval:   5 * time.Minute,
		WorkerConcurrency:    4,
		MaxJobAttempts:       3,
	}
}

// Load resolves the configuration for a service.
func Load() (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("RISK_CONFIG_FILE")
	if path == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.BrokerURL, "RABBITMQ_URL")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.KeyVaultURL, "KEY_VAULT_URL")
	setString(&cfg.FoundryEndpoint, "FOUNDRY_AGENT_ENDPOINT")
	setString(&cfg.FoundryAPIKey, "FOUNDRY_API_KEY")
	setString(&cfg.ContractsURL, "MCP_CONTRACTS_URL")
	setString(&cfg.RiskURL, "MCP_RISK_URL")
	setString(&cfg.MarketURL, "MCP_MARKET_URL")
	setFloat(&cfg.FXVaRThreshold, "FX_VAR_THRESHOLD")
	setFloat(&cfg.IRDv01Threshold, "IR_DV01_THRESHOLD")
	setFloat(&cfg.MarketShockThreshold, "MARKET_SHOCK_THRESHOLD")
	setFloat(&cfg.VolatilitySpikeLimit, "VOLATILITY_SPIKE_LIMIT")
	setDuration(&cfg.MarketPollInterval, "MARKET_POLL_INTERVAL")
	setInt(&cfg.WorkerConcurrency, "WORKER_CONCURRENCY")
	setInt(&cfg.MaxJobAttempts, "MAX_JOB_ATTEMPTS")

	// The deployment charts inject broker credentials as discrete values.
	if cfg.BrokerURL == "" {
		if host := os.Getenv("RABBITMQ_HOST"); host != "" {
			port := getEnv("RABBITMQ_PORT", "5672")
			user := getEnv("RABBITMQ_USER", "guest")
			pass := getEnv("RABBITMQ_PASS", "guest")
			cfg.BrokerURL = fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
