package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/laddvakt/laddvakt/core/events"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/logger"
	"github.com/laddvakt/laddvakt/internal/eventbus"
)

// StateManager mirrors engine state onto retained MQTT topics so dashboards
// and home automation can follow the charger without polling the API.
//
// Topics under the configured prefix:
//
//	{prefix}/state          full poll snapshot
//	{prefix}/vehicle/{id}   per-vehicle snapshot
//	{prefix}/session        latest charging session event
type StateManager struct {
	pub    Publisher
	prefix string
	log    logger.Logger

	polls    *eventbus.Bus[events.PollEvent]
	sessions *eventbus.Bus[events.SessionEvent]
}

// NewStateManager prepares a manager publishing under the given topic prefix.
func NewStateManager(pub Publisher, prefix string, polls *eventbus.Bus[events.PollEvent], sessions *eventbus.Bus[events.SessionEvent]) *StateManager {
	if prefix == "" {
		prefix = "laddvakt"
	}
	return &StateManager{
		pub:      pub,
		prefix:   strings.TrimSuffix(prefix, "/"),
		log:      logger.New("mqtt_state"),
		polls:    polls,
		sessions: sessions,
	}
}

// Start consumes bus events until the context is done or the buses close,
// then closes the publisher.
func (m *StateManager) Start(ctx context.Context) {
	defer m.pub.Close()
	pollCh := m.polls.Subscribe()
	defer m.polls.Unsubscribe(pollCh)
	sessCh := m.sessions.Subscribe()
	defer m.sessions.Unsubscribe(sessCh)
	for {
		select {
		case ev, ok := <-pollCh:
			if !ok {
				return
			}
			m.publishPoll(ev)
		case ev, ok := <-sessCh:
			if !ok {
				return
			}
			m.publishSession(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (m *StateManager) publishPoll(ev events.PollEvent) {
	m.publishJSON(m.prefix+"/state", ev.Snapshot)
	for _, v := range ev.Snapshot.Vehicles {
		m.publishJSON(m.prefix+"/vehicle/"+v.ID, v)
	}
}

func (m *StateManager) publishSession(ev events.SessionEvent) {
	m.publishJSON(m.prefix+"/session", struct {
		Phase   string                `json:"phase"`
		Session model.ChargingSession `json:"session"`
	}{Phase: ev.Phase.String(), Session: ev.Session})
}

func (m *StateManager) publishJSON(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.log.Errorf("encode %s: %v", topic, err)
		return
	}
	if err := m.pub.Publish(topic, payload, true); err != nil {
		m.log.Errorf("publish %s: %v", topic, err)
	}
}
