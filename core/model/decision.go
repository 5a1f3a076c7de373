package model

// Action is what the planner wants the charger to do for a vehicle.
type Action int

const (
	ActionIdle Action = iota
	ActionCharge
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionCharge:
		return "charge"
	case ActionIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Decision is the per-vehicle outcome of one evaluation. It is recomputed
// every poll and never persisted as authority.
type Decision struct {
	Action       Action
	Reason       string  // short operator-readable explanation
	Mode         string  // target mode: Aggressive, Balanced, Conservative or Fallback
	UrgencyHours float64 // charging hours still required to reach the target
}
