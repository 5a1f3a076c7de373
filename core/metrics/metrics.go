package metrics

import (
	"time"

	"github.com/laddvakt/laddvakt/core/model"
)

// PollRecord captures charger and price state after one poll cycle.
type PollRecord struct {
	Time          time.Time
	ActiveVehicle string
	ChargerMode   string
	PowerKW       float64
	PriceKWh      float64
	PriceSource   string
	TempC         float64
}

// Sink records poll results for observability purposes.
type Sink interface {
	RecordPoll(rec PollRecord) error
}

// DecisionRecord captures one vehicle's decision in a poll cycle.
type DecisionRecord struct {
	VehicleID    string
	Action       string
	Reason       string
	Mode         string
	SoC          int
	TargetSoC    int
	UrgencyHours float64
	Gated        bool
	Time         time.Time
}

// DecisionRecorder records per-vehicle decisions.
type DecisionRecorder interface {
	RecordDecision(rec DecisionRecord) error
}

// SessionRecord captures a session transition or update.
type SessionRecord struct {
	Phase   string // opened, updated or closed
	Session model.ChargingSession
	Time    time.Time
}

// SessionRecorder records charging session changes.
type SessionRecorder interface {
	RecordSession(rec SessionRecord) error
}

// ActuationRecord captures a start or stop command sent to the charger.
type ActuationRecord struct {
	Start     bool
	VehicleID string
	Error     string
	Time      time.Time
}

// ActuationRecorder records charger commands.
type ActuationRecorder interface {
	RecordActuation(rec ActuationRecord) error
}

// ForecastRecord captures the shape of a generated price forecast.
type ForecastRecord struct {
	Hours     int
	Official  int
	Synthetic int
	Bias      float64
	Time      time.Time
}

// ForecastRecorder records forecast generation statistics.
type ForecastRecorder interface {
	RecordForecast(rec ForecastRecord) error
}

// NopSink implements Sink and every optional recorder with no-ops.
type NopSink struct{}

func (NopSink) RecordPoll(PollRecord) error           { return nil }
func (NopSink) RecordDecision(DecisionRecord) error   { return nil }
func (NopSink) RecordSession(SessionRecord) error     { return nil }
func (NopSink) RecordActuation(ActuationRecord) error { return nil }
func (NopSink) RecordForecast(ForecastRecord) error   { return nil }
