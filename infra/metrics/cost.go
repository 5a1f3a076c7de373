package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/laddvakt/laddvakt/core/metrics"
	"github.com/laddvakt/laddvakt/core/metrics/cost"
)

// CostSink folds closed sessions into the daily cost store and exposes the
// running daily aggregates as Prometheus gauges.
type CostSink struct {
	store  cost.Store
	energy *prometheus.GaugeVec
	total  *prometheus.GaugeVec
	avg    *prometheus.GaugeVec
}

// NewCostSink creates a sink with gauges registered on reg. A nil
// registerer defaults to the global Prometheus registerer.
func NewCostSink(store cost.Store, reg prometheus.Registerer) *CostSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	energy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_energy_kwh",
		Help: "Energy charged per vehicle and day",
	}, []string{"vehicle_id", "day"})
	total := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_cost_sek",
		Help: "Total charging cost per vehicle and day",
	}, []string{"vehicle_id", "day"})
	avg := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_daily_avg_price_sek_kwh",
		Help: "Effective price paid per kWh per vehicle and day",
	}, []string{"vehicle_id", "day"})
	reg.MustRegister(energy, total, avg)
	return &CostSink{store: store, energy: energy, total: total, avg: avg}
}

// RecordPoll is a no-op; the cost sink only consumes sessions.
func (s *CostSink) RecordPoll(coremetrics.PollRecord) error { return nil }

// RecordSession folds a closed session into the daily aggregate.
func (s *CostSink) RecordSession(rec coremetrics.SessionRecord) error {
	if rec.Phase != "closed" {
		return nil
	}
	sess := rec.Session
	r := cost.Record{
		VehicleID: sess.VehicleID,
		Date:      sess.EndTime,
		EnergyKWh: sess.EnergyKWh,
		CostSpot:  sess.CostSpot,
		CostGrid:  sess.CostGrid,
		Sessions:  1,
	}
	if err := s.store.Add(r); err != nil {
		return err
	}
	day := cost.Day(sess.EndTime)
	recs, err := s.store.Query(sess.VehicleID, day, day)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	agg := recs[0]
	label := day.Format("2006-01-02")
	s.energy.WithLabelValues(agg.VehicleID, label).Set(agg.EnergyKWh)
	s.total.WithLabelValues(agg.VehicleID, label).Set(agg.TotalCost())
	s.avg.WithLabelValues(agg.VehicleID, label).Set(agg.AvgPriceKWh())
	return nil
}
