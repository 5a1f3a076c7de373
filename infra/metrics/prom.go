package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/laddvakt/laddvakt/core/metrics"
)

// PromSink records session and forecast events in Prometheus metrics.
// Poll and decision gauges are exported by the engine's own collectors.
type PromSink struct {
	sessions *prometheus.CounterVec
	energy   *prometheus.HistogramVec
	cost     *prometheus.HistogramVec
	runs     prometheus.Counter
	bias     prometheus.Gauge
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Charging session transitions by phase",
	}, []string{"vehicle_id", "phase"})
	energy := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_energy_kwh",
		Help:    "Energy delivered per closed charging session",
		Buckets: []float64{1, 2, 5, 10, 20, 40, 80},
	}, []string{"vehicle_id"})
	cost := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_cost_sek",
		Help:    "Total cost per closed charging session",
		Buckets: []float64{5, 10, 20, 50, 100, 200},
	}, []string{"vehicle_id"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forecast_runs_total",
		Help: "Number of generated price forecasts",
	})
	bias := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forecast_bias_factor",
		Help: "Calibration factor applied to synthesized prices",
	})

	if err := reg.Register(sessions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sessions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(energy); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			energy = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(cost); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			cost = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(bias); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			bias = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{sessions: sessions, energy: energy, cost: cost, runs: runs, bias: bias}, nil
}

// RecordPoll is a no-op; poll gauges live in the engine collectors.
func (s *PromSink) RecordPoll(coremetrics.PollRecord) error { return nil }

// RecordSession counts the transition and observes closed session size.
func (s *PromSink) RecordSession(rec coremetrics.SessionRecord) error {
	s.sessions.WithLabelValues(rec.Session.VehicleID, rec.Phase).Inc()
	if rec.Phase == "closed" {
		s.energy.WithLabelValues(rec.Session.VehicleID).Observe(rec.Session.EnergyKWh)
		s.cost.WithLabelValues(rec.Session.VehicleID).Observe(rec.Session.TotalCost())
	}
	return nil
}

// RecordForecast counts the run and tracks the applied bias.
func (s *PromSink) RecordForecast(rec coremetrics.ForecastRecord) error {
	s.runs.Inc()
	s.bias.Set(rec.Bias)
	return nil
}
