package events

import (
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

// PollEvent is published after every completed poll cycle.
type PollEvent struct {
	Snapshot model.Snapshot
}

// SessionPhase describes what happened to a session.
type SessionPhase int

const (
	SessionOpened SessionPhase = iota
	SessionUpdated
	SessionClosed
)

func (p SessionPhase) String() string {
	switch p {
	case SessionOpened:
		return "opened"
	case SessionUpdated:
		return "updated"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionEvent is published when a charging session changes.
type SessionEvent struct {
	Phase   SessionPhase
	Session model.ChargingSession
}

// ActuationEvent is published when the engine commands the charger.
type ActuationEvent struct {
	Start     bool // start when true, stop otherwise
	VehicleID string
	Time      time.Time
	Err       error
}
