package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/laddvakt/laddvakt/core/model"
)

// priceChart serves a self-contained HTML page plotting the synthesized
// price curve. With ?vehicle= the vehicle's planned charge hours are drawn
// as a second series.
func (s *Server) priceChart(w http.ResponseWriter, r *http.Request) {
	series := s.deps.Planner.Series()
	if len(series) == 0 {
		http.Error(w, "no forecast yet", http.StatusServiceUnavailable)
		return
	}

	var planned map[time.Time]bool
	if id := r.URL.Query().Get("vehicle"); id != "" {
		plan, err := s.deps.Planner.Plan(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		planned = make(map[time.Time]bool, len(plan.Hours))
		for _, h := range plan.Hours {
			planned[h.Truncate(time.Hour)] = true
		}
	}

	html, err := priceChartHTML(series, planned)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func priceChartHTML(series []model.PriceSample, planned map[time.Time]bool) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Price Forecast"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (SEK/kWh)"}),
	)

	var xAxis []string
	var price []opts.LineData
	var charge []opts.LineData
	for _, smp := range series {
		xAxis = append(xAxis, smp.Start.Format("2006-01-02 15:04"))
		price = append(price, opts.LineData{Value: smp.Price})
		if planned != nil {
			if planned[smp.Start.Truncate(time.Hour)] {
				charge = append(charge, opts.LineData{Value: smp.Price})
			} else {
				// null renders as a gap, leaving only the planned hours.
				charge = append(charge, opts.LineData{Value: nil})
			}
		}
	}

	line.SetXAxis(xAxis).AddSeries("price", price)
	if planned != nil {
		line.AddSeries("planned charge", charge)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return buf.String(), nil
}
