package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeConfig(t *testing.T, pub *MockPublisher, topic string) discoveryConfig {
	t.Helper()
	payload, ok := pub.Message(topic)
	if !ok {
		t.Fatalf("no config on %s, have %v", topic, pub.Topics())
	}
	var cfg discoveryConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		t.Fatalf("decode %s: %v", topic, err)
	}
	return cfg
}

func TestDiscoveryAnnouncesEntities(t *testing.T) {
	pub := NewMockPublisher()
	d := NewDiscovery(pub, Config{TopicPrefix: "home/ev", LWTTopic: "home/ev/availability"})

	if err := d.Announce([]DiscoveryVehicle{{ID: "eqv", Name: "EQV"}}); err != nil {
		t.Fatalf("announce: %v", err)
	}

	// Six charger-level entities plus four per vehicle.
	if got := len(pub.Topics()); got != 10 {
		t.Fatalf("expected 10 configs, got %d: %v", got, pub.Topics())
	}

	price := decodeConfig(t, pub, "homeassistant/sensor/home_ev/price/config")
	if price.StateTopic != "home/ev/state" {
		t.Errorf("price state topic = %q", price.StateTopic)
	}
	if price.UniqueID != "home_ev_price" || price.Unit != "SEK/kWh" {
		t.Errorf("unexpected price config: %+v", price)
	}
	if price.AvailabilityTopic != "home/ev/availability" || price.PayloadAvailable != "online" || price.PayloadNotAvailable != "offline" {
		t.Errorf("unexpected availability: %+v", price)
	}
	if len(price.Device.Identifiers) != 1 || price.Device.Identifiers[0] != "home_ev" {
		t.Errorf("unexpected device: %+v", price.Device)
	}
	if !pub.Retained("homeassistant/sensor/home_ev/price/config") {
		t.Errorf("config not retained")
	}

	soc := decodeConfig(t, pub, "homeassistant/sensor/home_ev/eqv_soc/config")
	if soc.StateTopic != "home/ev/vehicle/eqv" || soc.Name != "EQV SoC" || soc.DeviceClass != "battery" {
		t.Errorf("unexpected soc config: %+v", soc)
	}

	plugged := decodeConfig(t, pub, "homeassistant/binary_sensor/home_ev/eqv_plugged_in/config")
	if plugged.DeviceClass != "plug" || plugged.ValueTemplate == "" {
		t.Errorf("unexpected plugged_in config: %+v", plugged)
	}
}

func TestDiscoveryFallsBackToVehicleID(t *testing.T) {
	pub := NewMockPublisher()
	d := NewDiscovery(pub, Config{})

	if err := d.Announce([]DiscoveryVehicle{{ID: "leaf"}}); err != nil {
		t.Fatalf("announce: %v", err)
	}
	soc := decodeConfig(t, pub, "homeassistant/sensor/laddvakt/leaf_soc/config")
	if soc.Name != "leaf SoC" {
		t.Errorf("name = %q", soc.Name)
	}
	// No LWT topic configured, so no availability keys.
	if soc.AvailabilityTopic != "" {
		t.Errorf("unexpected availability topic %q", soc.AvailabilityTopic)
	}
}

func TestDiscoveryReportsPublishError(t *testing.T) {
	pub := NewMockPublisher()
	pub.Err = errors.New("broker gone")
	d := NewDiscovery(pub, Config{})

	if err := d.Announce(nil); err == nil {
		t.Fatalf("expected publish error")
	}
}
