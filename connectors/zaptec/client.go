// Package zaptec drives the wallbox through the Zaptec cloud API.
//
// The charger reports itself as a flat list of observer values; the handful
// of ids below cover everything the planner needs. Commands are fire and
// forget, the next status poll confirms the effect.
package zaptec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
)

const (
	cmdStartCharging = 501
	cmdStopCharging  = 502
)

// Observer ids served by /api/chargers/{id}/state.
const (
	obsSessionEnergy = 507
	obsTotalPower    = 510
	obsPowerL1       = 511
	obsPowerL2       = 512
	obsPowerL3       = 513
	obsOperatingMode = 710
)

// phaseActiveThresholdW filters out measurement noise when deciding
// whether a line actually carries current.
const phaseActiveThresholdW = 100.0

type stateEntry struct {
	StateID       int    `json:"StateId"`
	ValueAsString string `json:"ValueAsString"`
	Timestamp     string `json:"Timestamp"`
}

// Client talks to a single charger in the Zaptec cloud.
type Client struct {
	baseURL   string
	chargerID string
	auth      *passwordAuth
	httpc     *http.Client
	log       logger.Logger
}

func New(cfg config.ZaptecConfig) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	httpc := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return &Client{
		baseURL:   base,
		chargerID: cfg.ChargerID,
		auth:      newPasswordAuth(base+"/oauth/token", cfg.Username, cfg.Password, httpc),
		httpc:     httpc,
		log:       logger.New("zaptec"),
	}
}

// Status reads the charger's observer list and folds it into a ChargerStatus.
func (c *Client) Status(ctx context.Context) (model.ChargerStatus, error) {
	url := fmt.Sprintf("%s/api/chargers/%s/state", c.baseURL, c.chargerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ChargerStatus{}, err
	}
	if err := c.auth.setAuthHeader(ctx, req); err != nil {
		return model.ChargerStatus{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return model.ChargerStatus{}, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.ChargerStatus{}, fmt.Errorf("state endpoint returned %d: %s", resp.StatusCode, body)
	}

	var entries []stateEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return model.ChargerStatus{}, fmt.Errorf("decode state: %w", err)
	}

	var status model.ChargerStatus
	var phaseW [3]float64
	for _, e := range entries {
		switch e.StateID {
		case obsOperatingMode:
			code, err := strconv.Atoi(strings.TrimSpace(e.ValueAsString))
			if err != nil {
				c.log.Warnf("unreadable operating mode %q", e.ValueAsString)
				continue
			}
			status.ModeCode = code
			status.Mode = model.ModeFromCode(code)
		case obsSessionEnergy:
			status.SessionEnergyKWh = c.floatValue(e)
		case obsTotalPower:
			status.PowerKW = c.floatValue(e) / 1000
		case obsPowerL1:
			phaseW[0] = c.floatValue(e)
		case obsPowerL2:
			phaseW[1] = c.floatValue(e)
		case obsPowerL3:
			phaseW[2] = c.floatValue(e)
		}
	}
	for i, w := range phaseW {
		if w > phaseActiveThresholdW {
			status.PhaseMap[i] = true
			status.ActivePhases++
		}
	}
	status.Charging = status.Mode == model.ModeCharging
	return status, nil
}

// StartCharging resumes a paused session.
func (c *Client) StartCharging(ctx context.Context) error {
	return c.sendCommand(ctx, cmdStartCharging)
}

// StopCharging pauses the running session without releasing the cable.
func (c *Client) StopCharging(ctx context.Context) error {
	return c.sendCommand(ctx, cmdStopCharging)
}

func (c *Client) sendCommand(ctx context.Context, command int) error {
	url := fmt.Sprintf("%s/api/chargers/%s/sendCommand/%d", c.baseURL, c.chargerID, command)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	if err := c.auth.setAuthHeader(ctx, req); err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send command %d: %w", command, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("command %d returned %d: %s", command, resp.StatusCode, body)
	}
	c.log.Infof("sent command %d to charger %s", command, c.chargerID)
	return nil
}

func (c *Client) floatValue(e stateEntry) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(e.ValueAsString), 64)
	if err != nil {
		c.log.Warnf("unreadable value %q for observer %d", e.ValueAsString, e.StateID)
		return 0
	}
	return f
}
