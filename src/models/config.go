package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	GrpcPort  int              `yaml:"grpc_port"`
	LogLevel  string           `yaml:"log_level"`
	Storage   MStorageConfig   `yaml:"storage"`
	Ingestion MIngestionConfig `yaml:"ingestion"`
	Analytics MAnalyticsConfig `yaml:"analytics"`
	Cache     MCacheConfig     `yaml:"cache"`
	Signals   MSignalsConfig   `yaml:"signals"`
	Refresh   MRefreshConfig   `yaml:"refresh"`
}

type MStorageConfig struct {
	DBType              string `yaml:"db_type"`
	DBPath              string `yaml:"db_path"`
	DBConnectionString  string `yaml:"db_connection_string"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
	RetentionDays       int    `yaml:"retention_days"`
	MemoryCapacity      int    `yaml:"memory_capacity"`
}

type MIngestionConfig struct {
	Enabled               bool     `yaml:"enabled"`
	Provider              string   `yaml:"provider"`
	BaseURL               string   `yaml:"base_url"`
	WSURL                 string   `yaml:"ws_url"`
	Symbols               []string `yaml:"symbols,omitempty"`
	PollIntervalMs        int      `yaml:"poll_interval_ms"`
	TradesPerPoll         int      `yaml:"trades_per_poll"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
	MaxRetries            int      `yaml:"max_retries"`
	RequestsPerSecond     float64  `yaml:"requests_per_second"`
	CleanupIntervalMin    int      `yaml:"cleanup_interval_minutes"`
}

type MAnalyticsConfig struct {
	DefaultSymbolX     string  `yaml:"default_symbol_x"`
	DefaultSymbolY     string  `yaml:"default_symbol_y"`
	DefaultTimeframe   string  `yaml:"default_timeframe"`
	ZWindow            int     `yaml:"z_window"`
	CorrWindow         int     `yaml:"corr_window"`
	LookbackMinutes    int     `yaml:"lookback_minutes"`
	EntryZScore        float64 `yaml:"entry_zscore"`
	MinStationarityObs int     `yaml:"min_stationarity_obs"`
	ADFMaxLag          int     `yaml:"adf_max_lag"`
}

type MCacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type MSignalsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	NatsURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type MRefreshConfig struct {
	DefaultSeconds int `yaml:"default_seconds"`
	MinSeconds     int `yaml:"min_seconds"`
	MaxSeconds     int `yaml:"max_seconds"`
}
