// Package elpris fetches day-ahead spot prices from elprisetjustnu.se.
// The API serves one JSON document per day and bidding zone; tomorrow's
// document appears around 13:00 CET and is missing (404) before that.
package elpris

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

var errNotPublished = errors.New("prices not published")

type priceEntry struct {
	SEKPerKWh float64   `json:"SEK_per_kWh"`
	EURPerKWh float64   `json:"EUR_per_kWh"`
	EXR       float64   `json:"EXR"`
	TimeStart time.Time `json:"time_start"`
	TimeEnd   time.Time `json:"time_end"`
}

// Client retrieves spot prices for one bidding zone and composes the
// consumer price by adding grid fees, taxes and VAT on top of the raw
// spot value.
type Client struct {
	baseURL string
	zone    string
	fees    float64 // SEK/kWh added on top of the raw spot price
	httpc   *http.Client
	log     logger.Logger

	mu    sync.Mutex
	cache map[string][]model.PriceSample // published days are immutable
}

// New builds a client for the configured zone. feesPerKWh is the
// non-spot share of the consumer price, typically FeesConfig.TotalPerKWh.
func New(cfg config.ElprisConfig, feesPerKWh float64) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		zone:    cfg.Zone,
		fees:    feesPerKWh,
		httpc:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("elpris"),
		cache:   make(map[string][]model.PriceSample),
	}
}

// Prices returns today's and, when already published, tomorrow's hourly
// series. A missing tomorrow is not an error; a missing today is.
func (c *Client) Prices(ctx context.Context, now time.Time) ([]model.PriceSample, error) {
	today, err := c.day(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("fetch today: %w", err)
	}
	series := append([]model.PriceSample(nil), today...)

	tomorrow, err := c.day(ctx, now.AddDate(0, 0, 1))
	switch {
	case err == nil:
		series = append(series, tomorrow...)
	case errors.Is(err, errNotPublished):
		c.log.Debugf("tomorrow not published yet")
	default:
		// Today alone is enough to plan with.
		c.log.Warnf("fetch tomorrow: %v", err)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Start.Before(series[j].Start) })
	return series, nil
}

// WeeklyAverage returns the mean consumer price over the trailing seven
// days including today. Days without published data are skipped.
func (c *Client) WeeklyAverage(ctx context.Context, now time.Time) (float64, error) {
	var sum float64
	var n int
	for back := 0; back < 7; back++ {
		samples, err := c.day(ctx, now.AddDate(0, 0, -back))
		if err != nil {
			if !errors.Is(err, errNotPublished) {
				c.log.Warnf("fetch history day -%d: %v", back, err)
			}
			continue
		}
		for _, s := range samples {
			sum += s.Price
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("no price history available")
	}
	return sum / float64(n), nil
}

// day fetches one calendar day, serving repeated requests from the cache.
func (c *Client) day(ctx context.Context, date time.Time) ([]model.PriceSample, error) {
	key := date.Format("2006/01-02")

	c.mu.Lock()
	if samples, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return samples, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/%s_%s.json", c.baseURL, key, c.zone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotPublished
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var entries []priceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	samples := make([]model.PriceSample, 0, len(entries))
	for _, e := range entries {
		// The planner works on whole hours; skip sub-hour slots.
		if !e.TimeStart.Equal(e.TimeStart.Truncate(time.Hour)) {
			continue
		}
		samples = append(samples, model.PriceSample{
			Start:  e.TimeStart,
			Price:  e.SEKPerKWh + c.fees,
			Source: model.PriceOfficial,
		})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty price document for %s", key)
	}

	c.mu.Lock()
	c.cache[key] = samples
	c.prune(date)
	c.mu.Unlock()
	return samples, nil
}

// prune drops cached days older than the history window. Caller holds mu.
func (c *Client) prune(now time.Time) {
	cutoff := now.AddDate(0, 0, -8)
	for key := range c.cache {
		day, err := time.Parse("2006/01-02", key)
		if err != nil || day.Before(cutoff) {
			delete(c.cache, key)
		}
	}
}
