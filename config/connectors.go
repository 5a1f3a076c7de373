package config

// HomeAssistantConfig points at the Home Assistant instance fronting all
// vehicle telemetry.
type HomeAssistantConfig struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HomeAssistantConfig) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}

// ZaptecConfig holds the cloud API credentials for the wallbox.
type ZaptecConfig struct {
	BaseURL        string `json:"base_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	ChargerID      string `json:"charger_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ZaptecConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.zaptec.com"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}

// ElprisConfig selects the day-ahead spot price source and bidding zone.
type ElprisConfig struct {
	BaseURL        string `json:"base_url"`
	Zone           string `json:"zone"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ElprisConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.elprisetjustnu.se/api/v1/prices"
	}
	if c.Zone == "" {
		c.Zone = "SE3"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}

// OpenMeteoConfig locates the weather forecast used by the synthesizer.
type OpenMeteoConfig struct {
	BaseURL        string  `json:"base_url"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	ForecastDays   int     `json:"forecast_days"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *OpenMeteoConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		c.Latitude = 59.5196
		c.Longitude = 17.9285
	}
	if c.ForecastDays == 0 {
		c.ForecastDays = 3
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
}
