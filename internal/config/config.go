// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Word-vector configuration
	WordVec WordVecConfig `yaml:"wordvec"`

	// Margin configuration
	Margin MarginConfig `yaml:"margin"`

	// Embedding producer configuration
	Producer ProducerConfig `yaml:"producer"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// EvalConfig holds ranking evaluation settings.
type EvalConfig struct {
	DatasetRoot   string `envconfig:"COVER_DATASET_ROOT" yaml:"dataset_root"`
	TopK          int    `envconfig:"COVER_TOP_K" yaml:"top_k"`
	NormalizeDist bool   `envconfig:"COVER_NORMALIZE_DIST" yaml:"normalize_dist"`
	PerQuery      bool   `envconfig:"COVER_PER_QUERY" yaml:"per_query"`
	EmbedWorkers  int    `envconfig:"COVER_EMBED_WORKERS" yaml:"embed_workers"`
}

// WordVecConfig holds word-vector source settings.
type WordVecConfig struct {
	VectorsPath      string `envconfig:"COVER_VECTORS_PATH" yaml:"vectors_path"`
	Dim              int    `envconfig:"COVER_VECTORS_DIM" yaml:"dim"`
	DescriptionsPath string `envconfig:"COVER_DESCRIPTIONS_PATH" yaml:"descriptions_path"`
}

// MarginConfig holds semantic margin settings.
type MarginConfig struct {
	BaseMargin float64 `envconfig:"COVER_BASE_MARGIN" yaml:"base_margin"`
	Policy     string  `envconfig:"COVER_MARGIN_POLICY" yaml:"policy"`
}

// ProducerConfig holds embedding producer (Qdrant) settings.
type ProducerConfig struct {
	Host          string  `envconfig:"COVER_QDRANT_HOST" yaml:"host"`
	Port          int     `envconfig:"COVER_QDRANT_PORT" yaml:"port"`
	APIKey        string  `envconfig:"COVER_QDRANT_API_KEY" yaml:"api_key"`
	UseTLS        bool    `envconfig:"COVER_QDRANT_TLS" yaml:"use_tls"`
	Collection    string  `envconfig:"COVER_QDRANT_COLLECTION" yaml:"collection"`
	EmbeddingSize int     `envconfig:"COVER_EMBEDDING_SIZE" yaml:"embedding_size"`
	RateLimit     float64 `envconfig:"COVER_QDRANT_RATE_LIMIT" yaml:"rate_limit"`
	Burst         int     `envconfig:"COVER_QDRANT_BURST" yaml:"burst"`
}

// CacheConfig holds word-vector cache settings.
type CacheConfig struct {
	Enabled  bool   `envconfig:"COVER_CACHE_ENABLED" yaml:"enabled"`
	RedisURL string `envconfig:"COVER_REDIS_URL" yaml:"redis_url"`
	TTL      int    `envconfig:"COVER_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
}

// BusConfig holds result bus settings.
type BusConfig struct {
	Type         string `envconfig:"COVER_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"COVER_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"COVER_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"COVER_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"COVER_LOG_FORMAT" yaml:"format"`
}

// Margin policies.
const (
	PolicyBinary     = "binary"
	PolicyContinuous = "continuous"
)

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Eval = EvalConfig{
		DatasetRoot:   "data",
		NormalizeDist: true,
		EmbedWorkers:  4,
	}

	cfg.WordVec = WordVecConfig{
		Dim: 300,
	}

	cfg.Margin = MarginConfig{
		BaseMargin: 1.0,
		Policy:     PolicyBinary,
	}

	cfg.Producer = ProducerConfig{
		Host:          "localhost",
		Port:          6334,
		Collection:    "cover_embeddings",
		EmbeddingSize: 256,
		RateLimit:     100,
		Burst:         200,
	}

	cfg.Cache = CacheConfig{
		RedisURL: "redis://localhost:6379/0",
		TTL:      86400,
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "cover-eval",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Margin.Policy) {
	case PolicyBinary, PolicyContinuous:
	default:
		return fmt.Errorf("invalid margin policy: %s (must be %s or %s)",
			c.Margin.Policy, PolicyBinary, PolicyContinuous)
	}

	if c.WordVec.Dim <= 0 {
		return fmt.Errorf("invalid word-vector dimension: %d", c.WordVec.Dim)
	}

	if c.Producer.EmbeddingSize <= 0 {
		return fmt.Errorf("invalid embedding size: %d", c.Producer.EmbeddingSize)
	}

	if c.Eval.EmbedWorkers <= 0 {
		return fmt.Errorf("invalid embed worker count: %d", c.Eval.EmbedWorkers)
	}

	if c.Eval.TopK < 0 {
		return fmt.Errorf("invalid top-k: %d", c.Eval.TopK)
	}

	switch c.Bus.Type {
	case "memory", "kafka", "":
	default:
		return fmt.Errorf("invalid bus type: %s", c.Bus.Type)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}
