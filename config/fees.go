package config

import "fmt"

// FeesConfig models the fixed charges stacked on every consumed kWh on top
// of the spot price. All amounts are in SEK excluding VAT.
type FeesConfig struct {
	// GridFeePerKWh is the distribution operator's transfer charge.
	GridFeePerKWh float64 `json:"grid_fee_per_kwh"`
	// EnergyTaxPerKWh is the state energy tax.
	EnergyTaxPerKWh float64 `json:"energy_tax_per_kwh"`
	// RetailerFeePerKWh is the retailer's markup.
	RetailerFeePerKWh float64 `json:"retailer_fee_per_kwh"`
	// VATRate is applied on top of the summed fees, 0.25 for Sweden.
	VATRate float64 `json:"vat_rate"`
}

// SetDefaults applies the Swedish residential fee stack.
func (c *FeesConfig) SetDefaults() {
	if c.GridFeePerKWh == 0 {
		c.GridFeePerKWh = 0.25
	}
	if c.EnergyTaxPerKWh == 0 {
		c.EnergyTaxPerKWh = 0.36
	}
	if c.RetailerFeePerKWh == 0 {
		c.RetailerFeePerKWh = 0.05
	}
	if c.VATRate == 0 {
		c.VATRate = 0.25
	}
}

// Validate checks the fee amounts.
func (c FeesConfig) Validate() error {
	if c.GridFeePerKWh < 0 || c.EnergyTaxPerKWh < 0 || c.RetailerFeePerKWh < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	if c.VATRate < 0 || c.VATRate >= 1 {
		return fmt.Errorf("vat_rate must be in [0,1)")
	}
	return nil
}

// TotalPerKWh returns the combined grid charges per kWh including VAT.
func (c FeesConfig) TotalPerKWh() float64 {
	return (c.GridFeePerKWh + c.EnergyTaxPerKWh + c.RetailerFeePerKWh) * (1 + c.VATRate)
}
