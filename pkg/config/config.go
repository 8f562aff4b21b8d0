package config

import (
	"fmt"
	"os"

	"github.com/cuemby/buildmux/pkg/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds buildmuxd's own settings. It says nothing about the
// build engine itself - that configuration belongs to the engine, not
// the Mux that sits in front of it.
type Config struct {
	MaxNodeCount int       `yaml:"max_node_count"`
	LogLevel     log.Level `yaml:"log_level"`
	JSONLogs     bool      `yaml:"json_logs"`
	MetricsAddr  string    `yaml:"metrics_addr"`
}

// defaults mirrors the values cmd/buildmuxd falls back to when no
// config file is given.
func defaults() Config {
	return Config{
		MaxNodeCount: 1,
		LogLevel:     log.InfoLevel,
		JSONLogs:     false,
		MetricsAddr:  "127.0.0.1:9090",
	}
}

// Load reads and parses a YAML configuration file, applying defaults
// for any field left zero-valued.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.MaxNodeCount <= 0 {
		cfg.MaxNodeCount = 1
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = "127.0.0.1:9090"
	}
	return cfg, nil
}

// LoadDotEnv overlays process environment variables from a .env file,
// without overwriting variables already set in the environment. A
// missing file is not an error - most deployments have no .env at all.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load dotenv %s: %w", path, err)
	}
	return nil
}
