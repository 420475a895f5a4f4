package tiercache

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/unkn0wn-root/tiercache/compress"
)

// Config holds the tunables of a Cache. Zero values select defaults; negative
// values are rejected by Validate.
//
// Durations in YAML use Go syntax ("90s", "15m").
type Config struct {
	DefaultTTL           time.Duration `yaml:"default_ttl"`           // 0 => 5m
	MaxTTL               time.Duration `yaml:"max_ttl"`               // 0 => 24h
	CompressionEnabled   *bool         `yaml:"compression_enabled"`   // nil => true
	CompressionThreshold int           `yaml:"compression_threshold"` // bytes; 0 => 1024
	CompressionAlgorithm string        `yaml:"compression_algorithm"` // zstd|s2|gzip; "" => zstd
	L1MaxEntries         int           `yaml:"l1_max_entries"`        // 0 => 1000
	L1MaxMemoryBytes     int64         `yaml:"l1_max_memory_bytes"`   // 0 => 64 MiB
	NamespacePrefix      string        `yaml:"namespace_prefix"`      // "" => "tiercache:"
	WarmConcurrency      int           `yaml:"warm_concurrency"`      // 0 => 8
	SlowOpThreshold      time.Duration `yaml:"slow_op_threshold"`     // 0 => 100ms
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tiercache: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, &ConfigError{Field: "yaml", Reason: err.Error()}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.DefaultTTL < 0:
		return &ConfigError{Field: "default_ttl", Reason: "must not be negative"}
	case c.MaxTTL < 0:
		return &ConfigError{Field: "max_ttl", Reason: "must not be negative"}
	case c.CompressionThreshold < 0:
		return &ConfigError{Field: "compression_threshold", Reason: "must not be negative"}
	case c.L1MaxEntries < 0:
		return &ConfigError{Field: "l1_max_entries", Reason: "must be positive"}
	case c.L1MaxMemoryBytes < 0:
		return &ConfigError{Field: "l1_max_memory_bytes", Reason: "must be positive"}
	case c.WarmConcurrency < 0:
		return &ConfigError{Field: "warm_concurrency", Reason: "must be positive"}
	case c.SlowOpThreshold < 0:
		return &ConfigError{Field: "slow_op_threshold", Reason: "must not be negative"}
	}
	if c.CompressionAlgorithm != "" {
		if _, ok := compress.ByName(c.CompressionAlgorithm); !ok {
			return &ConfigError{Field: "compression_algorithm", Reason: fmt.Sprintf("unknown algorithm %q", c.CompressionAlgorithm)}
		}
	}
	d := c.withDefaults()
	if d.DefaultTTL > d.MaxTTL {
		return &ConfigError{Field: "default_ttl", Reason: fmt.Sprintf("%s exceeds max_ttl %s", d.DefaultTTL, d.MaxTTL)}
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.DefaultTTL = coalesce(c.DefaultTTL, defaultTTL)
	c.MaxTTL = coalesce(c.MaxTTL, defaultMaxTTL)
	c.CompressionThreshold = coalesce(c.CompressionThreshold, defaultCompressionMin)
	c.CompressionAlgorithm = coalesce(c.CompressionAlgorithm, defaultCompressionAlgo)
	c.L1MaxEntries = coalesce(c.L1MaxEntries, defaultL1MaxEntries)
	c.L1MaxMemoryBytes = coalesce[int64](c.L1MaxMemoryBytes, defaultL1MaxBytes)
	c.NamespacePrefix = coalesce(c.NamespacePrefix, defaultPrefix)
	c.WarmConcurrency = coalesce(c.WarmConcurrency, defaultWarmConcurrency)
	c.SlowOpThreshold = coalesce(c.SlowOpThreshold, defaultSlowOp)
	if c.CompressionEnabled == nil {
		on := true
		c.CompressionEnabled = &on
	}
	return c
}
