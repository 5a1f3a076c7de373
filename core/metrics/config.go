package metrics

import "github.com/laddvakt/laddvakt/core/factory"

// Config defines settings for metrics sinks and the scrape endpoint.
type Config struct {
	// Addr is the listen address of the Prometheus scrape endpoint. The
	// endpoint is served separately from the HTTP API.
	Addr  string                 `json:"addr"`
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":9091"
	}
}
