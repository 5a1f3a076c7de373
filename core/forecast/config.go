package forecast

import "fmt"

// Config defines the synthesizer tunables loaded from configuration.
type Config struct {
	HorizonDays int `json:"horizon_days" yaml:"horizon_days"`

	// Wind: prices rise when generation is scarce and fall in surplus.
	WindLowMS    float64 `json:"wind_low_ms" yaml:"wind_low_ms"`
	WindHighMS   float64 `json:"wind_high_ms" yaml:"wind_high_ms"`
	WindPenalty  float64 `json:"wind_penalty" yaml:"wind_penalty"`   // per m/s below the low threshold
	WindDiscount float64 `json:"wind_discount" yaml:"wind_discount"` // per m/s above the high threshold
	WindFloor    float64 `json:"wind_floor" yaml:"wind_floor"`

	// Solar: irradiance above the threshold discounts the price, capped.
	SolarThresholdWM2 float64 `json:"solar_threshold_wm2" yaml:"solar_threshold_wm2"`
	SolarDiscount     float64 `json:"solar_discount" yaml:"solar_discount"` // per W/m2 above the threshold
	SolarFloor        float64 `json:"solar_floor" yaml:"solar_floor"`

	// Temperature: heating demand below the threshold raises the price.
	TempThresholdC float64 `json:"temp_threshold_c" yaml:"temp_threshold_c"`
	TempPenalty    float64 `json:"temp_penalty" yaml:"temp_penalty"` // per degree below the threshold
	TempCeil       float64 `json:"temp_ceil" yaml:"temp_ceil"`

	// WinterBias is the seasonal factor applied December through February.
	WinterBias float64 `json:"winter_bias" yaml:"winter_bias"`

	// Clamp bounds for synthesized prices in SEK/kWh.
	MinPrice float64 `json:"min_price" yaml:"min_price"`
	MaxPrice float64 `json:"max_price" yaml:"max_price"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.HorizonDays == 0 {
		c.HorizonDays = 3
	}
	if c.WindLowMS == 0 {
		c.WindLowMS = 3
	}
	if c.WindHighMS == 0 {
		c.WindHighMS = 8
	}
	if c.WindPenalty == 0 {
		c.WindPenalty = 0.03
	}
	if c.WindDiscount == 0 {
		c.WindDiscount = 0.02
	}
	if c.WindFloor == 0 {
		c.WindFloor = 0.75
	}
	if c.SolarThresholdWM2 == 0 {
		c.SolarThresholdWM2 = 50
	}
	if c.SolarDiscount == 0 {
		c.SolarDiscount = 0.0002
	}
	if c.SolarFloor == 0 {
		c.SolarFloor = 0.75
	}
	if c.TempThresholdC == 0 {
		c.TempThresholdC = 2
	}
	if c.TempPenalty == 0 {
		c.TempPenalty = 0.01
	}
	if c.TempCeil == 0 {
		c.TempCeil = 1.45
	}
	if c.WinterBias == 0 {
		c.WinterBias = 1.10
	}
	if c.MinPrice == 0 {
		c.MinPrice = 0.05
	}
	if c.MaxPrice == 0 {
		c.MaxPrice = 15
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("horizon_days must be at least 1")
	}
	if c.WindLowMS >= c.WindHighMS {
		return fmt.Errorf("wind_low_ms must be below wind_high_ms")
	}
	if c.MinPrice <= 0 || c.MaxPrice <= c.MinPrice {
		return fmt.Errorf("price clamp bounds must satisfy 0 < min < max")
	}
	return nil
}
