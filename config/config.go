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

	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/forecast"
	"github.com/laddvakt/laddvakt/core/metrics"
	"github.com/laddvakt/laddvakt/core/scheduler"
	"github.com/laddvakt/laddvakt/core/session"
	"github.com/laddvakt/laddvakt/core/target"
	"github.com/laddvakt/laddvakt/infra/mqtt"
)

// Config is the root configuration of the charging service.
type Config struct {
	Engine        engine.Config       `json:"engine"`
	Forecast      forecast.Config     `json:"forecast"`
	Target        target.Config       `json:"target"`
	Scheduler     scheduler.Config    `json:"scheduler"`
	Session       session.Config      `json:"session"`
	Fees          FeesConfig          `json:"fees"`
	Vehicles      []VehicleConfig     `json:"vehicles"`
	HomeAssistant HomeAssistantConfig `json:"home_assistant"`
	Charger       ZaptecConfig        `json:"charger"`
	Elpris        ElprisConfig        `json:"elpris"`
	OpenMeteo     OpenMeteoConfig     `json:"open_meteo"`
	Store         StoreConfig         `json:"store"`
	API           APIConfig           `json:"api"`
	Metrics       metrics.Config      `json:"metrics"`
	MQTT          mqtt.Config         `json:"mqtt"`
	Sentry        SentryConfig        `json:"sentry"`
}

// Load reads the configuration file, applies environment overrides, fills
// defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides, e.g. LV_ELPRIS__ZONE=SE4.
	if err := k.Load(env.Provider("LV_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "lv_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}

	cfg.Engine.SetDefaults()
	cfg.Forecast.SetDefaults()
	cfg.Target.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Fees.SetDefaults()
	cfg.HomeAssistant.SetDefaults()
	cfg.Charger.SetDefaults()
	cfg.Elpris.SetDefaults()
	cfg.OpenMeteo.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.API.SetDefaults()
	cfg.Metrics.SetDefaults()

	// The accountant follows the poll cadence and the configured fee stack
	// unless overridden explicitly.
	if cfg.Session.TicksPerHour == 0 {
		cfg.Session.TicksPerHour = 3600 / float64(cfg.Engine.PollSeconds)
	}
	if cfg.Session.GridFeePerKWh == 0 {
		cfg.Session.GridFeePerKWh = cfg.Fees.TotalPerKWh()
	}
	cfg.Session.SetDefaults()

	if err := cfg.Forecast.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cfg.Vehicles))
	for i := range cfg.Vehicles {
		cfg.Vehicles[i].SetDefaults()
		if err := cfg.Vehicles[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[cfg.Vehicles[i].ID]; dup {
			return nil, fmt.Errorf("duplicate vehicle id %s", cfg.Vehicles[i].ID)
		}
		seen[cfg.Vehicles[i].ID] = struct{}{}
	}
	return &cfg, nil
}
