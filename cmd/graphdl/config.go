package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. Values are read from the config file,
// then GRAPHDL_* environment variables, then command-line flags.
type Config struct {
	// Schema is a schema file or a directory of schema files.
	Schema string `yaml:"schema" toml:"schema"`
	// Driver is one of memory, sqlite, postgres or mysql.
	Driver string `yaml:"driver" toml:"driver"`
	// DSN is the data source name of SQL drivers.
	DSN string `yaml:"dsn" toml:"dsn"`
	// IDStrategy names the id generator: uuid, uuidv7, nanoid or ulid.
	IDStrategy     string  `yaml:"id_strategy" toml:"id_strategy"`
	MaxDepth       int     `yaml:"max_depth" toml:"max_depth"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" toml:"fuzzy_threshold"`
	ArrayCount     int     `yaml:"array_count" toml:"array_count"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" toml:"log_level"`
	// Debug logs every SQL statement.
	Debug bool `yaml:"debug" toml:"debug"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Schema:         "schema",
		Driver:         "sqlite",
		DSN:            "graphdl.db",
		IDStrategy:     "uuid",
		MaxDepth:       10,
		FuzzyThreshold: 0.75,
		ArrayCount:     1,
		LogLevel:       "info",
	}
}

// LoadConfig reads path over the defaults. The format follows the file
// extension: .toml for TOML, anything else for YAML. An empty path skips the
// file. Environment overrides are applied last.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("decoding %s: %w", path, err)
			}
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decoding %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"GRAPHDL_SCHEMA":      &c.Schema,
		"GRAPHDL_DRIVER":      &c.Driver,
		"GRAPHDL_DSN":         &c.DSN,
		"GRAPHDL_ID_STRATEGY": &c.IDStrategy,
		"GRAPHDL_LOG_LEVEL":   &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup("GRAPHDL_MAX_DEPTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHDL_MAX_DEPTH: %w", err)
		}
		c.MaxDepth = n
	}
	if v, ok := lookup("GRAPHDL_FUZZY_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GRAPHDL_FUZZY_THRESHOLD: %w", err)
		}
		c.FuzzyThreshold = f
	}
	if v, ok := lookup("GRAPHDL_ARRAY_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHDL_ARRAY_COUNT: %w", err)
		}
		c.ArrayCount = n
	}
	if v, ok := lookup("GRAPHDL_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPHDL_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
