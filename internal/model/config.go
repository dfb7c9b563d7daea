package model

import "time"

// Config holds all runtime configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	GDELT    GDELTConfig    `yaml:"gdelt" mapstructure:"gdelt"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Training TrainingConfig `yaml:"training" mapstructure:"training"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GDELTConfig configures the evidence search client
type GDELTConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	MaxRecords        int           `yaml:"max_records" mapstructure:"max_records"`
	MaxRecordsCap     int           `yaml:"max_records_cap" mapstructure:"max_records_cap"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Retries           int           `yaml:"retries" mapstructure:"retries"`
	Backoff           time.Duration `yaml:"backoff" mapstructure:"backoff"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// EnrichConfig configures article snippet enrichment
type EnrichConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls the GDELT response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ScoringConfig selects the default scorer
type ScoringConfig struct {
	DefaultModel string `yaml:"default_model" mapstructure:"default_model"`
}

// TrainingConfig holds logistic regression and calibration hyperparameters
type TrainingConfig struct {
	LearningRate      float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	Epochs            int     `yaml:"epochs" mapstructure:"epochs"`
	PlattLearningRate float64 `yaml:"platt_learning_rate" mapstructure:"platt_learning_rate"`
	PlattEpochs       int     `yaml:"platt_epochs" mapstructure:"platt_epochs"`
	Seed              uint64  `yaml:"seed" mapstructure:"seed"`
	SplitRatio        float64 `yaml:"split_ratio" mapstructure:"split_ratio"`
	SchemaVersion     string  `yaml:"schema_version" mapstructure:"schema_version"`
	Calibrate         bool    `yaml:"calibrate" mapstructure:"calibrate"`
}

// LLMConfig configures the explanation provider
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, stub, or empty to disable
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr               string `yaml:"addr" mapstructure:"addr"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	TrustProxy         bool   `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// LogConfig sets the log level
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// BatchConfig sets batch analysis concurrency
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./data/trustlens.db"},
		GDELT: GDELTConfig{
			BaseURL:           "https://api.gdeltproject.org/api/v2/doc/doc",
			MaxRecords:        25,
			MaxRecordsCap:     50,
			Timeout:           20 * time.Second,
			RequestsPerSecond: 1,
			Retries:           2,
			Backoff:           500 * time.Millisecond,
		},
		Enrich: EnrichConfig{
			Enabled:           false,
			Workers:           4,
			UserAgent:         "TrustLens/0.1 (+https://github.com/praveenpuviindran/trustlens)",
			Timeout:           10 * time.Second,
			MaxBodyBytes:      1 << 20,
			RequestsPerSecond: 1,
			Burst:             2,
			RespectRobots:     true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "./data/cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		Scoring: ScoringConfig{DefaultModel: BaselineModelID},
		Training: TrainingConfig{
			LearningRate:      0.1,
			Epochs:            500,
			PlattLearningRate: 0.05,
			PlattEpochs:       1000,
			Seed:              42,
			SplitRatio:        0.8,
			SchemaVersion:     string(SchemaV1),
			Calibrate:         true,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   30 * time.Second,
			MaxTokens: 800,
		},
		Server: ServerConfig{Addr: ":8080", RateLimitPerMinute: 60},
		Log:    LogConfig{Level: "info"},
		Batch:  BatchConfig{Workers: 4},
	}
}
