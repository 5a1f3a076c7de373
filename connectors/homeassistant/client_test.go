package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/laddvakt/laddvakt/config"
)

type serviceCall struct {
	Domain  string
	Service string
	Payload map[string]any
}

// fakeHA serves /api/states and records /api/services calls.
type fakeHA struct {
	t      *testing.T
	mu     sync.Mutex
	states map[string]string
	calls  []serviceCall
}

func newFakeHA(t *testing.T) (*fakeHA, *Client) {
	t.Helper()
	f := &fakeHA{t: t, states: make(map[string]string)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	cli := New(config.HomeAssistantConfig{BaseURL: srv.URL, Token: "secret", TimeoutSeconds: 5})
	return f, cli
}

func (f *fakeHA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer secret" {
		f.t.Errorf("missing bearer token on %s", r.URL.Path)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/states/"):
		doc, ok := f.states[strings.TrimPrefix(r.URL.Path, "/api/states/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, doc)
	case strings.HasPrefix(r.URL.Path, "/api/services/"):
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/services/"), "/")
		if len(parts) != 2 {
			http.Error(w, "bad service path", http.StatusBadRequest)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.calls = append(f.calls, serviceCall{Domain: parts[0], Service: parts[1], Payload: payload})
		fmt.Fprint(w, "[]")
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHA) setState(id, doc string) {
	f.mu.Lock()
	f.states[id] = doc
	f.mu.Unlock()
}

func (f *fakeHA) serviceCalls() []serviceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]serviceCall(nil), f.calls...)
}

func TestStateDecodes(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.eqv_soc", `{
		"entity_id": "sensor.eqv_soc",
		"state": "54",
		"attributes": {"charging": true, "range": 210},
		"last_updated": "2026-03-10T08:00:00+00:00"
	}`)

	st, err := cli.State(context.Background(), "sensor.eqv_soc")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.EntityID != "sensor.eqv_soc" {
		t.Errorf("entity id = %s", st.EntityID)
	}
	f, err := st.Float()
	if err != nil || f != 54 {
		t.Errorf("float = %v, %v", f, err)
	}
	if !st.AttrBool("charging") {
		t.Errorf("charging attribute not read")
	}
	if st.AttrFloat("range") != 210 {
		t.Errorf("range attribute = %v", st.AttrFloat("range"))
	}
}

func TestStateUnavailableNotNumeric(t *testing.T) {
	ha, cli := newFakeHA(t)
	ha.setState("sensor.eqv_soc", `{"entity_id": "sensor.eqv_soc", "state": "unavailable", "attributes": {}}`)

	st, err := cli.State(context.Background(), "sensor.eqv_soc")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if _, err := st.Float(); err == nil {
		t.Fatalf("expected parse error for unavailable state")
	}
}

func TestStateMissingEntity(t *testing.T) {
	_, cli := newFakeHA(t)
	if _, err := cli.State(context.Background(), "sensor.gone"); err == nil {
		t.Fatalf("expected error for missing entity")
	}
}

func TestCallServicePayload(t *testing.T) {
	ha, cli := newFakeHA(t)
	err := cli.CallService(context.Background(), "climate", "turn_on", "climate.eqv_precond", map[string]any{"temperature": 21.5})
	if err != nil {
		t.Fatalf("call service: %v", err)
	}
	calls := ha.serviceCalls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	c := calls[0]
	if c.Domain != "climate" || c.Service != "turn_on" {
		t.Errorf("called %s.%s", c.Domain, c.Service)
	}
	if c.Payload["entity_id"] != "climate.eqv_precond" || c.Payload["temperature"] != 21.5 {
		t.Errorf("payload = %v", c.Payload)
	}
}
