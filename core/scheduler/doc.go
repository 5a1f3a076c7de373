// Package scheduler decides, per vehicle and per poll, whether to charge
// now or wait for cheaper hours. It layers a critical tier that guarantees
// the minimum SoC before departure over an opportunistic tier that picks
// the cheapest hours of the forecast horizon.
package scheduler
