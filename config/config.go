// Package config loads the service configuration from a YAML or JSON file
// with SUB_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/substation/core/engine"
	"github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/infra/journal"
	"github.com/kilianp07/substation/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. SUB_MQTT__BROKER sets
// mqtt.broker.
const EnvPrefix = "SUB_"

type Config struct {
	Simulation engine.Config  `json:"simulation"`
	MQTT       mqtt.Config    `json:"mqtt"`
	Metrics    metrics.Config `json:"metrics"`
	API        APIConfig      `json:"api"`
	Logging    LoggingConfig  `json:"logging"`
	Journal    journal.Config `json:"journal"`
}

// Load reads path, applies environment overrides, defaults and validation.
// An empty path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
	c.Logging.SetDefaults()
	c.Journal.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Journal.Validate()
}
