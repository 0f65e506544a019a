// Package config loads and validates shard configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem: the TCP listener, the segment set, the ranker pool, the
// optional result cache, logging, and metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level shard configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Segment SegmentConfig `yaml:"segment"`
	Ranker  RankerConfig  `yaml:"ranker"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds the shard's TCP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SegmentConfig controls where segments are discovered and how aggressively
// they are pinned into memory.
type SegmentConfig struct {
	DataDir       string `yaml:"dataDir"`
	MlockCapBytes int64  `yaml:"mlockCapBytes"`
	MadviseWill   bool   `yaml:"madviseWillNeed"`
}

// RankerConfig controls the per-query worker pool. Workers and MaxDocs are
// passed to the ranker; MaxRankedDocs and MaxResults are parsed but not
// read anywhere, since the shard uses its fixed shard.MaxRankedDocs and
// merge.MaxResults constants.
type RankerConfig struct {
	Workers       int `yaml:"workers"`
	MaxDocs       int `yaml:"maxDocs"`
	MaxRankedDocs int `yaml:"maxRankedDocs"`
	MaxResults    int `yaml:"maxResults"`
}

// CacheConfig controls the optional Redis-backed result cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// variable overrides, returning a Config populated with defaults for any
// field the file or environment leaves unset.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Segment: SegmentConfig{
			DataDir:       "./data",
			MlockCapBytes: 40 << 30, // 40 GiB, per the memory-locking policy
			MadviseWill:   true,
		},
		Ranker: RankerConfig{
			Workers:       14,
			MaxDocs:       100,
			MaxRankedDocs: 200,
			MaxResults:    10,
		},
		Cache: CacheConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			TTL:      60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SQ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SQ_SEGMENT_DATA_DIR"); v != "" {
		cfg.Segment.DataDir = v
	}
	if v := os.Getenv("SQ_RANKER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranker.Workers = n
		}
	}
	if v := os.Getenv("SQ_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if v := os.Getenv("SQ_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SQ_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SQ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SQ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SQ_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
