package engine

import "time"

// Config controls the control loop cadence and read caching.
type Config struct {
	// PollSeconds is the interval between control loop iterations.
	PollSeconds int `json:"poll_seconds"`
	// CacheTTLMinutes bounds how long a stale collaborator value may
	// stand in for a failed read.
	CacheTTLMinutes int `json:"cache_ttl_minutes"`
}

// SetDefaults fills zero fields with sane values.
func (c *Config) SetDefaults() {
	if c.PollSeconds <= 0 {
		c.PollSeconds = 60
	}
	if c.CacheTTLMinutes <= 0 {
		c.CacheTTLMinutes = 15
	}
}

// Interval returns the poll interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// TTL returns the cache TTL as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
