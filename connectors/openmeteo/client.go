// Package openmeteo fetches the hourly weather forecast feeding the price
// synthesizer. Open-Meteo needs no API key for non-commercial use.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

type response struct {
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		WindSpeed   []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Client retrieves the forecast for one fixed location.
type Client struct {
	baseURL string
	lat     float64
	lon     float64
	days    int
	httpc   *http.Client
	log     logger.Logger
}

// New builds a client for the configured location.
func New(cfg config.OpenMeteoConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		lat:     cfg.Latitude,
		lon:     cfg.Longitude,
		days:    cfg.ForecastDays,
		httpc:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("openmeteo"),
	}
}

// Forecast returns hourly temperature and wind samples starting today.
func (c *Client) Forecast(ctx context.Context, now time.Time) ([]model.WeatherSample, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(c.lon, 'f', 4, 64))
	q.Set("hourly", "temperature_2m,wind_speed_10m")
	q.Set("wind_speed_unit", "ms")
	q.Set("forecast_days", strconv.Itoa(c.days))
	q.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	n := len(data.Hourly.Time)
	if len(data.Hourly.Temperature) < n {
		n = len(data.Hourly.Temperature)
	}
	if len(data.Hourly.WindSpeed) < n {
		n = len(data.Hourly.WindSpeed)
	}

	samples := make([]model.WeatherSample, 0, n)
	for i := 0; i < n; i++ {
		// With timezone=UTC the API serves naive timestamps in UTC.
		ts, err := time.ParseInLocation("2006-01-02T15:04", data.Hourly.Time[i], time.UTC)
		if err != nil {
			c.log.Warnf("skip sample with bad timestamp %q: %v", data.Hourly.Time[i], err)
			continue
		}
		samples = append(samples, model.WeatherSample{
			Time:   ts,
			TempC:  data.Hourly.Temperature[i],
			WindMS: data.Hourly.WindSpeed[i],
		})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty forecast response")
	}
	return samples, nil
}
