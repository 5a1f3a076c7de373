// Package export renders plans and session history for download and for
// the CLI's --json/--csv output.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/laddvakt/laddvakt/core/engine"
	"github.com/laddvakt/laddvakt/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PriceRow is the wire form of one forecast hour, with the source enum
// flattened to a string.
type PriceRow struct {
	Time   time.Time `json:"time"`
	Price  float64   `json:"price_sek_kwh"`
	Source string    `json:"source"`
}

// SeriesRows flattens a price series for JSON output.
func SeriesRows(series []model.PriceSample) []PriceRow {
	rows := make([]PriceRow, len(series))
	for i, s := range series {
		rows[i] = PriceRow{Time: s.Start, Price: s.Price, Source: s.Source.String()}
	}
	return rows
}

// PlanDoc is the wire form of a charge plan.
type PlanDoc struct {
	VehicleID string      `json:"vehicle_id"`
	TargetSoC int         `json:"target_soc"`
	Mode      string      `json:"mode"`
	Hours     []time.Time `json:"hours"`
	Series    []PriceRow  `json:"series"`
}

// NewPlanDoc converts a plan for JSON output.
func NewPlanDoc(plan engine.Plan) PlanDoc {
	return PlanDoc{
		VehicleID: plan.VehicleID,
		TargetSoC: plan.TargetSoC,
		Mode:      plan.Mode,
		Hours:     plan.Hours,
		Series:    SeriesRows(plan.Series),
	}
}

// WritePlanCSV writes the hourly plan, one row per forecast hour with a
// charge flag for the planned hours.
func WritePlanCSV(w io.Writer, plan engine.Plan) error {
	planned := make(map[time.Time]bool, len(plan.Hours))
	for _, h := range plan.Hours {
		planned[h.Truncate(time.Hour)] = true
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "price_sek_kwh", "source", "charge"}); err != nil {
		return err
	}
	for _, s := range plan.Series {
		rec := []string{
			s.Start.Format(time.RFC3339),
			strconv.FormatFloat(s.Price, 'f', -1, 64),
			s.Source.String(),
			strconv.FormatBool(planned[s.Start.Truncate(time.Hour)]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSessionsCSV writes charging sessions with a header row. Open
// sessions render with an empty end time.
func WriteSessionsCSV(w io.Writer, sessions []model.ChargingSession) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "vehicle_id", "start_time", "end_time",
		"energy_kwh", "cost_spot", "cost_grid", "cost_total",
		"start_soc", "end_soc", "avg_power_kw",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range sessions {
		end := ""
		if !s.EndTime.IsZero() {
			end = s.EndTime.Format(time.RFC3339)
		}
		rec := []string{
			s.ID,
			s.VehicleID,
			s.StartTime.Format(time.RFC3339),
			end,
			strconv.FormatFloat(s.EnergyKWh, 'f', -1, 64),
			strconv.FormatFloat(s.CostSpot, 'f', -1, 64),
			strconv.FormatFloat(s.CostGrid, 'f', -1, 64),
			strconv.FormatFloat(s.TotalCost(), 'f', -1, 64),
			strconv.Itoa(s.StartSoC),
			strconv.Itoa(s.EndSoC),
			strconv.FormatFloat(s.AvgPowerKW, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
