package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/laddvakt/laddvakt/core/events"
	"github.com/laddvakt/laddvakt/core/model"
	"github.com/laddvakt/laddvakt/infra/mqtt"
	"github.com/laddvakt/laddvakt/internal/eventbus"
	"github.com/laddvakt/laddvakt/test/util"
)

func connectProbe(t *testing.T, broker, id string) paho.Client {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(id)
	cli := paho.NewClient(opts)
	var connErr error
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			return cli
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	t.Fatalf("connect %s: %v", id, connErr)
	return nil
}

func subscribeTopic(t *testing.T, cli paho.Client, topic string) <-chan paho.Message {
	t.Helper()
	ch := make(chan paho.Message, 8)
	token := cli.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		select {
		case ch <- m:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, token.Error())
	}
	return ch
}

func waitMessage(t *testing.T, ch <-chan paho.Message, topic string) paho.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatalf("no message on %s", topic)
	}
	return nil
}

// TestStatePublishWithMQTTContainer runs the state manager against a real
// Mosquitto broker: poll and session events land as retained JSON on the
// state topics, Home Assistant discovery configs are retained, and closing
// the publisher announces offline.
func TestStatePublishWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Fatalf("mosquitto: %v", err)
	}
	defer cleanup()

	probe := connectProbe(t, broker, "probe")
	defer probe.Disconnect(100)
	stateCh := subscribeTopic(t, probe, "laddvakt/state")
	vehicleCh := subscribeTopic(t, probe, "laddvakt/vehicle/eqv")
	sessionCh := subscribeTopic(t, probe, "laddvakt/session")
	availCh := subscribeTopic(t, probe, "laddvakt/availability")

	cfg := mqtt.Config{
		Broker:   broker,
		ClientID: "laddvakt-it",
		LWTTopic: "laddvakt/availability",
	}
	pub, err := mqtt.NewPahoPublisher(cfg)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}

	if m := waitMessage(t, availCh, "availability"); string(m.Payload()) != "online" {
		t.Errorf("availability = %q, want online", m.Payload())
	}

	if err := mqtt.NewDiscovery(pub, cfg).Announce([]mqtt.DiscoveryVehicle{{ID: "eqv", Name: "EQV"}}); err != nil {
		t.Fatalf("discovery: %v", err)
	}

	polls := eventbus.New[events.PollEvent]()
	sessions := eventbus.New[events.SessionEvent]()
	defer polls.Close()
	defer sessions.Close()
	mgr := mqtt.NewStateManager(pub, "laddvakt", polls, sessions)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go mgr.Start(runCtx)

	snap := model.Snapshot{
		Time:          time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC),
		ActiveVehicle: "eqv",
		PriceSEK:      1.25,
		PriceSource:   "official",
		Vehicles: []model.VehicleSnapshot{
			{ID: "eqv", Name: "EQV", SoC: 63, PluggedIn: true, Action: "charge"},
		},
	}

	// The manager subscribes in its own goroutine; republish until the
	// event makes it through.
	deadline := time.After(5 * time.Second)
	var stateMsg paho.Message
	for stateMsg == nil {
		polls.Publish(events.PollEvent{Snapshot: snap})
		select {
		case m := <-stateCh:
			stateMsg = m
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no state message")
		}
	}

	var gotSnap model.Snapshot
	if err := json.Unmarshal(stateMsg.Payload(), &gotSnap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if gotSnap.ActiveVehicle != "eqv" || gotSnap.PriceSEK != 1.25 {
		t.Errorf("state snapshot %+v, want active eqv at 1.25", gotSnap)
	}

	var gotVehicle model.VehicleSnapshot
	if err := json.Unmarshal(waitMessage(t, vehicleCh, "vehicle/eqv").Payload(), &gotVehicle); err != nil {
		t.Fatalf("decode vehicle: %v", err)
	}
	if gotVehicle.SoC != 63 || gotVehicle.Action != "charge" {
		t.Errorf("vehicle snapshot %+v, want 63%% charging", gotVehicle)
	}

	sessions.Publish(events.SessionEvent{
		Phase: events.SessionClosed,
		Session: model.ChargingSession{
			ID:        "s1",
			VehicleID: "eqv",
			EnergyKWh: 7.4,
		},
	})
	var gotSession struct {
		Phase   string                `json:"phase"`
		Session model.ChargingSession `json:"session"`
	}
	if err := json.Unmarshal(waitMessage(t, sessionCh, "session").Payload(), &gotSession); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if gotSession.Phase != "closed" || gotSession.Session.EnergyKWh != 7.4 {
		t.Errorf("session event %+v, want closed at 7.4 kWh", gotSession)
	}

	// State and discovery topics are retained: a dashboard or a restarted
	// Home Assistant connecting later still sees them.
	late := connectProbe(t, broker, "late-joiner")
	defer late.Disconnect(100)
	lateCh := subscribeTopic(t, late, "laddvakt/state")
	if m := waitMessage(t, lateCh, "retained state"); !m.Retained() {
		t.Error("state message not retained")
	}
	discCh := subscribeTopic(t, late, "homeassistant/sensor/laddvakt/eqv_soc/config")
	dm := waitMessage(t, discCh, "discovery config")
	if !dm.Retained() {
		t.Error("discovery config not retained")
	}
	var entity struct {
		StateTopic        string `json:"state_topic"`
		AvailabilityTopic string `json:"availability_topic"`
	}
	if err := json.Unmarshal(dm.Payload(), &entity); err != nil {
		t.Fatalf("decode discovery: %v", err)
	}
	if entity.StateTopic != "laddvakt/vehicle/eqv" || entity.AvailabilityTopic != "laddvakt/availability" {
		t.Errorf("discovery config %+v", entity)
	}

	// Stopping the manager closes the publisher, which announces offline
	// before disconnecting.
	cancel()
	if m := waitMessage(t, availCh, "availability"); string(m.Payload()) != "offline" {
		t.Errorf("availability after close = %q, want offline", m.Payload())
	}
}
