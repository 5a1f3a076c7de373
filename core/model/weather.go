package model

import "time"

// WeatherSample is one hour of the weather forecast used to synthesize
// prices beyond the official horizon.
type WeatherSample struct {
	Time          time.Time
	TempC         float64 // air temperature at 2 m
	WindMS        float64 // wind speed at 10 m
	WindMS100     float64 // wind speed at 100 m (turbine hub height)
	IrradianceWM2 float64 // shortwave solar radiation
}

// EffectiveWindMS returns the wind speed relevant for generation, the
// stronger of the two measurement heights.
func (w WeatherSample) EffectiveWindMS() float64 {
	if w.WindMS100 > w.WindMS {
		return w.WindMS100
	}
	return w.WindMS
}
