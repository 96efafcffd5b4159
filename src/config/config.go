package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pair-analytics/src/analysis"
	"pair-analytics/src/models"
)

// Environment variables that override endpoints and secrets from the file.
const (
	EnvDBDSN         = "PAIR_DB_DSN"
	EnvDBPath        = "PAIR_DB_PATH"
	EnvRedisAddr     = "PAIR_REDIS_ADDR"
	EnvRedisPassword = "PAIR_REDIS_PASSWORD"
	EnvNatsURL       = "PAIR_NATS_URL"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 0. Best-effort .env next to the process
	_ = godotenv.Load()

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnv()
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Storage.DBConnectionString, EnvDBDSN)
	set(&c.Storage.DBPath, EnvDBPath)
	set(&c.Cache.RedisAddr, EnvRedisAddr)
	set(&c.Cache.RedisPassword, EnvRedisPassword)
	set(&c.Signals.NatsURL, EnvNatsURL)
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional settings left at their zero value.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	c.Storage.DBType = strings.ToLower(c.Storage.DBType)
	if c.Storage.QueryTimeoutSeconds == 0 {
		c.Storage.QueryTimeoutSeconds = 10
	}
	if c.Storage.MemoryCapacity == 0 {
		c.Storage.MemoryCapacity = 100000
	}

	ing := &c.Ingestion
	if ing.Provider == "" {
		ing.Provider = "binance_rest"
	}
	if ing.BaseURL == "" {
		ing.BaseURL = "https://api.binance.com"
	}
	if ing.WSURL == "" {
		ing.WSURL = "wss://stream.binance.com:9443"
	}
	if ing.PollIntervalMs == 0 {
		ing.PollIntervalMs = 1000
	}
	if ing.TradesPerPoll == 0 {
		ing.TradesPerPoll = 100
	}
	if ing.RequestTimeoutSeconds == 0 {
		ing.RequestTimeoutSeconds = 10
	}
	if ing.MaxRetries == 0 {
		ing.MaxRetries = 3
	}
	if ing.RequestsPerSecond == 0 {
		ing.RequestsPerSecond = 5
	}
	if ing.CleanupIntervalMin == 0 {
		ing.CleanupIntervalMin = 60
	}
	for i, s := range ing.Symbols {
		ing.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	an := &c.Analytics
	if an.DefaultTimeframe == "" {
		an.DefaultTimeframe = "1 Minute"
	}
	if an.ZWindow == 0 {
		an.ZWindow = analysis.DefaultZWindow
	}
	if an.CorrWindow == 0 {
		an.CorrWindow = analysis.DefaultCorrWindow
	}
	if an.EntryZScore == 0 {
		an.EntryZScore = analysis.DefaultEntryZScore
	}
	if an.MinStationarityObs == 0 {
		an.MinStationarityObs = 20
	}

	if c.Signals.SubjectPrefix == "" {
		c.Signals.SubjectPrefix = "pairs.signal"
	}

	if c.Refresh.DefaultSeconds == 0 {
		c.Refresh.DefaultSeconds = 5
	}
	if c.Refresh.MinSeconds == 0 {
		c.Refresh.MinSeconds = 1
	}
	if c.Refresh.MaxSeconds == 0 {
		c.Refresh.MaxSeconds = 300
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535 || c.GrpcPort == c.Port) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "memory":
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	// Ingestion
	if c.Ingestion.Enabled {
		if c.Ingestion.Provider != "binance_rest" && c.Ingestion.Provider != "binance_ws" {
			return fmt.Errorf("unsupported ingestion provider '%s'", c.Ingestion.Provider)
		}
		if len(c.Ingestion.Symbols) == 0 {
			return fmt.Errorf("ingestion needs at least one symbol")
		}
		for i, s := range c.Ingestion.Symbols {
			if s == "" {
				return fmt.Errorf("ingestion symbol %d cannot be empty", i)
			}
		}
	}
	if c.Ingestion.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Ingestion.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	// Analytics
	if _, err := analysis.ParseTimeframe(c.Analytics.DefaultTimeframe); err != nil {
		return fmt.Errorf("default timeframe: %w", err)
	}
	if c.Analytics.ZWindow < analysis.MinRollingWindow || c.Analytics.CorrWindow < analysis.MinRollingWindow {
		return fmt.Errorf("rolling windows must be at least %d", analysis.MinRollingWindow)
	}
	if c.Analytics.EntryZScore <= 0 {
		return fmt.Errorf("entry z-score must be positive")
	}
	if c.Analytics.LookbackMinutes < 0 {
		return fmt.Errorf("lookback minutes cannot be negative")
	}
	if c.Analytics.ADFMaxLag < 0 {
		return fmt.Errorf("adf max lag cannot be negative")
	}

	// Push side
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty when the cache is enabled")
	}
	if c.Signals.Enabled && c.Signals.NatsURL == "" {
		return fmt.Errorf("nats url cannot be empty when signals are enabled")
	}
	if c.Refresh.MinSeconds > c.Refresh.MaxSeconds ||
		c.Refresh.DefaultSeconds < c.Refresh.MinSeconds || c.Refresh.DefaultSeconds > c.Refresh.MaxSeconds {
		return fmt.Errorf("refresh seconds must satisfy min <= default <= max")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
