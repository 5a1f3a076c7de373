package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/laddvakt/laddvakt/core/metrics"
	"github.com/laddvakt/laddvakt/infra/logger"
)

// InfluxSink writes poll, decision and session events to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPoll writes one poll cycle's charger and price state.
func (s *InfluxSink) RecordPoll(rec coremetrics.PollRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("poll").
		AddTag("active_vehicle", rec.ActiveVehicle).
		AddTag("charger_mode", rec.ChargerMode).
		AddTag("price_source", rec.PriceSource).
		AddTag("component", "engine").
		AddField("power_kw", round3(rec.PowerKW)).
		AddField("price_kwh", round3(rec.PriceKWh)).
		AddField("temp_c", round3(rec.TempC)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecision writes one vehicle's decision.
func (s *InfluxSink) RecordDecision(rec coremetrics.DecisionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("decision").
		AddTag("vehicle_id", rec.VehicleID).
		AddTag("action", rec.Action).
		AddTag("mode", rec.Mode).
		AddTag("gated", strconv.FormatBool(rec.Gated)).
		AddTag("component", "engine").
		AddField("soc", rec.SoC).
		AddField("target_soc", rec.TargetSoC).
		AddField("urgency_hours", round3(rec.UrgencyHours)).
		AddField("reason", rec.Reason).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSession writes a session transition.
func (s *InfluxSink) RecordSession(rec coremetrics.SessionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess := rec.Session
	p := write.NewPointWithMeasurement("charging_session").
		AddTag("vehicle_id", sess.VehicleID).
		AddTag("phase", rec.Phase).
		AddTag("component", "accountant").
		AddField("energy_kwh", round3(sess.EnergyKWh)).
		AddField("cost_spot", round3(sess.CostSpot)).
		AddField("cost_grid", round3(sess.CostGrid)).
		AddField("avg_power_kw", round3(sess.AvgPowerKW)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordActuation writes a charger command.
func (s *InfluxSink) RecordActuation(rec coremetrics.ActuationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	command := "stop"
	if rec.Start {
		command = "start"
	}
	p := write.NewPointWithMeasurement("charger_command").
		AddTag("vehicle_id", rec.VehicleID).
		AddTag("command", command).
		AddTag("component", "engine").
		AddField("errors", rec.Error).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordForecast writes the shape of a generated forecast.
func (s *InfluxSink) RecordForecast(rec coremetrics.ForecastRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_run").
		AddTag("component", "forecast").
		AddField("hours", rec.Hours).
		AddField("official", rec.Official).
		AddField("synthetic", rec.Synthetic).
		AddField("bias", round3(rec.Bias)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
