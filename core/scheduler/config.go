package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines planning parameters loaded from configuration.
type Config struct {
	// TopUpQuantile is the price quantile under which a vehicle at target
	// may still top up when daily top-up is enabled.
	TopUpQuantile float64 `json:"top_up_quantile" yaml:"top_up_quantile"`
	// DefaultDeparture is the wall-clock deadline used when no per-vehicle
	// setting exists, formatted as "15:04".
	DefaultDeparture string `json:"default_departure" yaml:"default_departure"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.TopUpQuantile == 0 {
		c.TopUpQuantile = 0.25
	}
	if c.DefaultDeparture == "" {
		c.DefaultDeparture = "07:00"
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.TopUpQuantile <= 0 || c.TopUpQuantile >= 1 {
		return fmt.Errorf("top_up_quantile must be in (0,1)")
	}
	if _, err := parseClock(c.DefaultDeparture); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	return cfg, err
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
