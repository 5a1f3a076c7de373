package zaptec

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laddvakt/laddvakt/config"
	"github.com/laddvakt/laddvakt/core/model"
)

type fakeCloud struct {
	t *testing.T

	mu         sync.Mutex
	tokenHits  int
	commands   []int
	state      []stateEntry
	stateCode  int
	lastBearer string
}

func newFakeCloud(t *testing.T) (*fakeCloud, *httptest.Server) {
	t.Helper()
	f := &fakeCloud{t: t, stateCode: http.StatusOK}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCloud) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/oauth/token" {
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "password", r.FormValue("grant_type"))
		assert.Equal(f.t, "anna@example.com", r.FormValue("username"))
		assert.Equal(f.t, "hunter2", r.FormValue("password"))
		f.tokenHits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, f.tokenHits)
		return
	}

	f.lastBearer = r.Header.Get("Authorization")

	var cmd int
	if n, _ := fmt.Sscanf(r.URL.Path, "/api/chargers/ZAP-1/sendCommand/%d", &cmd); n == 1 {
		assert.Equal(f.t, http.MethodPost, r.Method)
		f.commands = append(f.commands, cmd)
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/api/chargers/ZAP-1/state" {
		if f.stateCode != http.StatusOK {
			w.WriteHeader(f.stateCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i, e := range f.state {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"StateId":%d,"ValueAsString":%q,"Timestamp":"2026-01-10T06:00:00Z"}`, e.StateID, e.ValueAsString)
		}
		fmt.Fprint(w, "]")
		return
	}

	http.NotFound(w, r)
}

func newTestClient(srv *httptest.Server) *Client {
	return New(config.ZaptecConfig{
		BaseURL:        srv.URL,
		Username:       "anna@example.com",
		Password:       "hunter2",
		ChargerID:      "ZAP-1",
		TimeoutSeconds: 5,
	})
}

func TestStatusParsesObservers(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cloud.state = []stateEntry{
		{StateID: obsOperatingMode, ValueAsString: "3"},
		{StateID: obsTotalPower, ValueAsString: "7350"},
		{StateID: obsSessionEnergy, ValueAsString: "5.25"},
		{StateID: obsPowerL1, ValueAsString: "2450"},
		{StateID: obsPowerL2, ValueAsString: "2450"},
		{StateID: obsPowerL3, ValueAsString: "2450"},
	}

	st, err := newTestClient(srv).Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.ModeCharging, st.Mode)
	assert.Equal(t, 3, st.ModeCode)
	assert.True(t, st.Charging)
	assert.InDelta(t, 7.35, st.PowerKW, 1e-9)
	assert.InDelta(t, 5.25, st.SessionEnergyKWh, 1e-9)
	assert.Equal(t, 3, st.ActivePhases)
	assert.Equal(t, [3]bool{true, true, true}, st.PhaseMap)
	assert.Equal(t, "Bearer tok-1", cloud.lastBearer)
}

func TestStatusSinglePhase(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cloud.state = []stateEntry{
		{StateID: obsOperatingMode, ValueAsString: "3"},
		{StateID: obsTotalPower, ValueAsString: "2300"},
		{StateID: obsPowerL1, ValueAsString: "2300"},
		{StateID: obsPowerL2, ValueAsString: "0"},
		{StateID: obsPowerL3, ValueAsString: "12"},
	}

	st, err := newTestClient(srv).Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, st.ActivePhases)
	assert.Equal(t, [3]bool{true, false, false}, st.PhaseMap)
}

func TestStatusIdleCharger(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cloud.state = []stateEntry{
		{StateID: obsOperatingMode, ValueAsString: "2"},
		{StateID: obsTotalPower, ValueAsString: "0"},
	}

	st, err := newTestClient(srv).Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.ModeConnectedWaiting, st.Mode)
	assert.False(t, st.Charging)
	assert.Zero(t, st.ActivePhases)
}

func TestTokenReusedAcrossCalls(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cloud.state = []stateEntry{{StateID: obsOperatingMode, ValueAsString: "1"}}

	cli := newTestClient(srv)
	_, err := cli.Status(context.Background())
	require.NoError(t, err)
	_, err = cli.Status(context.Background())
	require.NoError(t, err)

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	assert.Equal(t, 1, cloud.tokenHits)
}

func TestCommands(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cli := newTestClient(srv)

	require.NoError(t, cli.StartCharging(context.Background()))
	require.NoError(t, cli.StopCharging(context.Background()))

	cloud.mu.Lock()
	defer cloud.mu.Unlock()
	assert.Equal(t, []int{cmdStartCharging, cmdStopCharging}, cloud.commands)
}

func TestStatusServerError(t *testing.T) {
	cloud, srv := newFakeCloud(t)
	cloud.stateCode = http.StatusInternalServerError

	_, err := newTestClient(srv).Status(context.Background())
	assert.Error(t, err)
}
