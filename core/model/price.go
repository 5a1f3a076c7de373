package model

import (
	"fmt"
	"time"
)

// PriceSource indicates where a price sample came from.
type PriceSource int

const (
	// PriceOfficial marks samples published by the market operator.
	PriceOfficial PriceSource = iota
	// PriceForecasted marks samples synthesized from weather fundamentals.
	PriceForecasted
)

// String returns a human-readable representation of the price source.
func (s PriceSource) String() string {
	switch s {
	case PriceOfficial:
		return "official"
	case PriceForecasted:
		return "forecasted"
	default:
		return "unknown"
	}
}

// PriceSample is one hour of the electricity price series.
type PriceSample struct {
	Start  time.Time   // hour-aligned start of validity
	Price  float64     // SEK/kWh including grid fees, taxes and VAT
	Source PriceSource // official or forecasted
}

// ValidateSeries checks that samples are hour-aligned, unique and strictly
// increasing in time.
func ValidateSeries(series []PriceSample) error {
	for i, s := range series {
		if !s.Start.Equal(s.Start.Truncate(time.Hour)) {
			return fmt.Errorf("sample %d not hour-aligned: %s", i, s.Start)
		}
		if i > 0 && !series[i-1].Start.Before(s.Start) {
			return fmt.Errorf("sample %d out of order: %s after %s", i, s.Start, series[i-1].Start)
		}
	}
	return nil
}

// PriceAt returns the sample covering the hour containing t.
func PriceAt(series []PriceSample, t time.Time) (PriceSample, bool) {
	hour := t.Truncate(time.Hour)
	for _, s := range series {
		if s.Start.Equal(hour) {
			return s, true
		}
	}
	return PriceSample{}, false
}
