package model

import (
	"fmt"
	"time"
)

// OverrideAction is a manual instruction that takes precedence over the
// scheduler.
type OverrideAction int

const (
	ForceCharge OverrideAction = iota
	ForceStop
)

// String returns a human-readable representation of the override action.
func (a OverrideAction) String() string {
	switch a {
	case ForceCharge:
		return "charge"
	case ForceStop:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseOverrideAction converts a user-supplied action name. "auto" is not an
// action but a request to clear, handled by the caller.
func ParseOverrideAction(s string) (OverrideAction, error) {
	switch s {
	case "charge":
		return ForceCharge, nil
	case "stop":
		return ForceStop, nil
	default:
		return 0, fmt.Errorf("unknown override action %q", s)
	}
}

// Override pins a vehicle to charge or stop until it expires.
type Override struct {
	VehicleID string
	Action    OverrideAction
	ExpiresAt time.Time
}

// Expired reports whether the override should be treated as absent.
func (o Override) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
