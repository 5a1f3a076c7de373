// Package vehicle defines the capability surface the engine requires from
// a vehicle connector. Vendor quirks belong in the adapter
// implementations, never here.
package vehicle

import (
	"context"
	"errors"

	"github.com/laddvakt/laddvakt/core/model"
)

// ErrUnsupported is returned by adapters for operations the vehicle's
// integration does not expose.
var ErrUnsupported = errors.New("operation not supported by this vehicle")

// Info describes a configured vehicle.
type Info struct {
	ID           string
	Name         string
	CapacityKWh  float64
	ChargeRateKW float64 // rated AC charge power
	Phases       int     // 1 or 3
}

// Client is implemented by every vehicle adapter.
type Client interface {
	Info() Info
	Status(ctx context.Context) (model.VehicleStatus, error)
	StartClimate(ctx context.Context) error
	StopClimate(ctx context.Context) error
	StartCharging(ctx context.Context) error
	StopCharging(ctx context.Context) error
}
