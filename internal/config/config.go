package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the recalld API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LongTerm  StoreConfig     `yaml:"longterm"`
	HotCache  StoreConfig     `yaml:"hotcache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Promotion PromotionConfig `yaml:"promotion"`
	Eviction  EvictionConfig  `yaml:"eviction"`
	Audit     AuditConfig     `yaml:"audit"`
	Enricher  EnricherConfig  `yaml:"enricher"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds connection settings for one tier's backing store.
type StoreConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Index            string   `yaml:"index"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RetrievalConfig holds query and ranking settings.
type RetrievalConfig struct {
	DefaultSize    int     `yaml:"default_size"`
	Alpha          float64 `yaml:"alpha"`
	VectorWeight   float64 `yaml:"vector_weight"`
	TierTimeoutSec int     `yaml:"tier_timeout_sec"`
}

// PromotionConfig holds the promotion gate settings.
type PromotionConfig struct {
	Threshold     int   `yaml:"threshold"`
	WindowSeconds int64 `yaml:"window_seconds"` // 0 disables the ingest window check
}

// EvictionConfig holds the TTL sweep settings.
type EvictionConfig struct {
	TTLMinutes        int     `yaml:"ttl_minutes"`
	BatchSize         int     `yaml:"batch_size"`
	IntervalSec       int     `yaml:"interval_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // -1 = unlimited
}

// AuditConfig holds the promotion event trail settings.
type AuditConfig struct {
	RetentionHours int `yaml:"retention_hours"` // 0 keeps events forever
}

// EnricherConfig holds the NER term extraction service settings.
type EnricherConfig struct {
	BaseURL    string   `yaml:"base_url"`
	TimeoutSec int      `yaml:"timeout_sec"`
	Labels     []string `yaml:"labels"`
}

// EmbeddingConfig holds the embedding provider settings. An empty APIKey
// disables vector blending entirely; retrieval stays lexical.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.LongTerm.ReadinessTimeout <= 0 {
		c.LongTerm.ReadinessTimeout = 10
	}
	if c.LongTerm.Index == "" {
		c.LongTerm.Index = "longterm"
	}
	if c.HotCache.ReadinessTimeout <= 0 {
		c.HotCache.ReadinessTimeout = 10
	}
	if c.HotCache.Index == "" {
		c.HotCache.Index = "hotcache"
	}
	if c.Retrieval.DefaultSize <= 0 {
		c.Retrieval.DefaultSize = 8
	}
	if c.Retrieval.Alpha <= 0 {
		c.Retrieval.Alpha = 0.5
	}
	if c.Retrieval.VectorWeight <= 0 {
		c.Retrieval.VectorWeight = 0.3
	}
	if c.Retrieval.TierTimeoutSec <= 0 {
		c.Retrieval.TierTimeoutSec = 5
	}
	if c.Promotion.Threshold <= 0 {
		c.Promotion.Threshold = 25
	}
	if c.Eviction.TTLMinutes <= 0 {
		c.Eviction.TTLMinutes = 30
	}
	if c.Eviction.BatchSize <= 0 {
		c.Eviction.BatchSize = 100
	}
	if c.Eviction.IntervalSec <= 0 {
		c.Eviction.IntervalSec = 60
	}
	if c.Eviction.RequestsPerSecond == 0 {
		c.Eviction.RequestsPerSecond = -1
	}
	if c.Enricher.TimeoutSec <= 0 {
		c.Enricher.TimeoutSec = 5
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.LongTerm.Addrs) == 0 {
		return fmt.Errorf("longterm.addrs is required")
	}
	if len(c.HotCache.Addrs) == 0 {
		return fmt.Errorf("hotcache.addrs is required")
	}
	if c.Retrieval.Alpha > 1 {
		return fmt.Errorf("retrieval.alpha must be in (0, 1], got %v", c.Retrieval.Alpha)
	}
	if c.Promotion.WindowSeconds < 0 {
		return fmt.Errorf("promotion.window_seconds must be >= 0, got %d", c.Promotion.WindowSeconds)
	}
	if c.Embedding.APIKey != "" && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.api_key is set")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
