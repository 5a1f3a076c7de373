// Package homeassistant provides the REST client and the vehicle adapters
// reading telemetry through a Home Assistant instance. All vehicle
// integrations (Mercedes ME, LeafSpy/Kamereon and friends) are flattened
// into entities there, which keeps vendor OAuth dances out of this
// process.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/infra/logger"
)

// State is one entity state document as served by /api/states.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Float parses the state value as a number. Unavailable entities report
// the strings "unavailable" or "unknown" and fail the parse.
func (s State) Float() (float64, error) {
	f, err := strconv.ParseFloat(s.State, 64)
	if err != nil {
		return 0, fmt.Errorf("entity %s state %q is not numeric", s.EntityID, s.State)
	}
	return f, nil
}

// On reports whether a binary sensor is asserted.
func (s State) On() bool { return s.State == "on" }

// AttrBool reads a boolean attribute, tolerating string-typed values.
func (s State) AttrBool(name string) bool {
	switch v := s.Attributes[name].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "on"
	default:
		return false
	}
}

// AttrFloat reads a numeric attribute, tolerating string-typed values.
func (s State) AttrFloat(name string) float64 {
	switch v := s.Attributes[name].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Client is a minimal Home Assistant REST client.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     logger.Logger
}

// New builds a client from the instance configuration.
func New(cfg config.HomeAssistantConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:     logger.New("homeassistant"),
	}
}

// State fetches the current state of one entity.
func (c *Client) State(ctx context.Context, entityID string) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/states/"+entityID, nil)
	if err != nil {
		return State{}, err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return State{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return State{}, fmt.Errorf("state %s: unexpected status %d: %s", entityID, resp.StatusCode, body)
	}
	var st State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return State{}, fmt.Errorf("decode state %s: %w", entityID, err)
	}
	return st, nil
}

// CallService invokes a Home Assistant service against one entity, with
// optional extra payload fields.
func (c *Client) CallService(ctx context.Context, domain, service, entityID string, data map[string]any) error {
	payload := map[string]any{"entity_id": entityID}
	for k, v := range data {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	c.log.Infof("calling %s.%s for %s", domain, service, entityID)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("service %s.%s: unexpected status %d: %s", domain, service, resp.StatusCode, respBody)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
