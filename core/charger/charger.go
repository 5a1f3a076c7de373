// Package charger defines the control surface of the wallbox connector.
package charger

import (
	"context"

	"github.com/laddvakt/laddvakt/core/model"
)

// Client is implemented by the wallbox adapter.
type Client interface {
	Status(ctx context.Context) (model.ChargerStatus, error)
	StartCharging(ctx context.Context) error
	StopCharging(ctx context.Context) error
}
