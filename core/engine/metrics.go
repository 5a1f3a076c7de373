package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pollDuration    prometheus.Histogram
	chargerPowerKW  prometheus.Gauge
	spotPrice       prometheus.Gauge
	vehicleSoC      *prometheus.GaugeVec
	decisionsTotal  *prometheus.CounterVec
	chargerCommands *prometheus.CounterVec
	degradedReads   *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, prometheus.Gauge, prometheus.Gauge, *prometheus.GaugeVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_duration_seconds",
			Help:    "Duration of one control loop iteration",
			Buckets: prometheus.DefBuckets,
		},
	)
	pow := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "charger_power_kw",
			Help: "Power currently drawn through the charger",
		},
	)
	price := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spot_price_sek_kwh",
			Help: "Effective electricity price for the current hour",
		},
	)
	soc := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vehicle_soc_percent",
			Help: "Last known state of charge per vehicle",
		},
		[]string{"vehicle"},
	)
	dec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Number of charging decisions taken",
		},
		[]string{"vehicle", "action"},
	)
	cmd := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charger_commands_total",
			Help: "Number of start and stop commands sent to the charger",
		},
		[]string{"command"},
	)
	deg := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degraded_reads_total",
			Help: "Number of collaborator reads served stale or failed",
		},
		[]string{"source"},
	)
	return dur, pow, price, soc, dec, cmd, deg
}

func init() {
	pollDuration, chargerPowerKW, spotPrice, vehicleSoC, decisionsTotal, chargerCommands, degradedReads = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(pollDuration, chargerPowerKW, spotPrice, vehicleSoC, decisionsTotal, chargerCommands, degradedReads)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	pollDuration, chargerPowerKW, spotPrice, vehicleSoC, decisionsTotal, chargerCommands, degradedReads = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
