package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/laddvakt/laddvakt/infra/logger"
)

// Discovery announces the state topics to Home Assistant over its MQTT
// discovery protocol. One retained config message per entity is published
// under the standard homeassistant/ prefix, after which Home Assistant
// creates the matching sensors without any YAML on its side.
type Discovery struct {
	pub     Publisher
	prefix  string
	node    string // prefix flattened to a single topic level
	avail   string
	offline string
	log     logger.Logger
}

// DiscoveryVehicle identifies one vehicle to announce entities for.
type DiscoveryVehicle struct {
	ID   string
	Name string
}

// NewDiscovery prepares an announcer matching the publisher's configuration.
func NewDiscovery(pub Publisher, cfg Config) *Discovery {
	offline := cfg.LWTPayload
	if offline == "" {
		offline = "offline"
	}
	prefix := cfg.Prefix()
	return &Discovery{
		pub:     pub,
		prefix:  prefix,
		node:    strings.ReplaceAll(prefix, "/", "_"),
		avail:   cfg.LWTTopic,
		offline: offline,
		log:     logger.New("mqtt_discovery"),
	}
}

type discoveryDevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model,omitempty"`
}

type discoveryConfig struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	StateTopic          string          `json:"state_topic"`
	ValueTemplate       string          `json:"value_template,omitempty"`
	Unit                string          `json:"unit_of_measurement,omitempty"`
	DeviceClass         string          `json:"device_class,omitempty"`
	StateClass          string          `json:"state_class,omitempty"`
	AvailabilityTopic   string          `json:"availability_topic,omitempty"`
	PayloadAvailable    string          `json:"payload_available,omitempty"`
	PayloadNotAvailable string          `json:"payload_not_available,omitempty"`
	Device              discoveryDevice `json:"device"`
}

// Announce publishes the discovery configs for the charger-level entities and
// one set per vehicle. All entities are attempted even when one publish
// fails, and the first error is returned afterwards.
func (d *Discovery) Announce(vehicles []DiscoveryVehicle) error {
	type entity struct {
		component string
		object    string
		cfg       discoveryConfig
	}

	state := d.prefix + "/state"
	entities := []entity{
		{"sensor", "price", discoveryConfig{
			Name:          "Spot price",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.price_sek_kwh }}",
			Unit:          "SEK/kWh",
			StateClass:    "measurement",
		}},
		{"sensor", "charger_power", discoveryConfig{
			Name:          "Charger power",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.charger.power_kw }}",
			Unit:          "kW",
			DeviceClass:   "power",
			StateClass:    "measurement",
		}},
		{"sensor", "session_energy", discoveryConfig{
			Name:          "Session energy",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.charger.session_energy_kwh }}",
			Unit:          "kWh",
			DeviceClass:   "energy",
			StateClass:    "total_increasing",
		}},
		{"sensor", "charger_mode", discoveryConfig{
			Name:          "Charger mode",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.charger.mode }}",
		}},
		{"sensor", "active_vehicle", discoveryConfig{
			Name:          "Active vehicle",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.active_vehicle }}",
		}},
		{"sensor", "outdoor_temp", discoveryConfig{
			Name:          "Outdoor temperature",
			StateTopic:    state,
			ValueTemplate: "{{ value_json.temp_c }}",
			Unit:          "°C",
			DeviceClass:   "temperature",
			StateClass:    "measurement",
		}},
	}

	for _, v := range vehicles {
		name := v.Name
		if name == "" {
			name = v.ID
		}
		topic := d.prefix + "/vehicle/" + v.ID
		entities = append(entities,
			entity{"sensor", v.ID + "_soc", discoveryConfig{
				Name:          name + " SoC",
				StateTopic:    topic,
				ValueTemplate: "{{ value_json.soc }}",
				Unit:          "%",
				DeviceClass:   "battery",
			}},
			entity{"sensor", v.ID + "_target_soc", discoveryConfig{
				Name:          name + " target SoC",
				StateTopic:    topic,
				ValueTemplate: "{{ value_json.target_soc }}",
				Unit:          "%",
			}},
			entity{"sensor", v.ID + "_action", discoveryConfig{
				Name:          name + " action",
				StateTopic:    topic,
				ValueTemplate: "{{ value_json.action }}",
			}},
			entity{"binary_sensor", v.ID + "_plugged_in", discoveryConfig{
				Name:          name + " plugged in",
				StateTopic:    topic,
				ValueTemplate: "{{ 'ON' if value_json.plugged_in else 'OFF' }}",
				DeviceClass:   "plug",
			}},
		)
	}

	var firstErr error
	for _, e := range entities {
		if err := d.publish(e.component, e.object, e.cfg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Discovery) publish(component, object string, cfg discoveryConfig) error {
	cfg.UniqueID = d.node + "_" + object
	cfg.Device = discoveryDevice{
		Identifiers: []string{d.node},
		Name:        "Laddvakt",
		Model:       "EV charge controller",
	}
	if d.avail != "" {
		cfg.AvailabilityTopic = d.avail
		cfg.PayloadAvailable = "online"
		cfg.PayloadNotAvailable = d.offline
	}
	topic := fmt.Sprintf("homeassistant/%s/%s/%s/config", component, d.node, object)
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := d.pub.Publish(topic, payload, true); err != nil {
		d.log.Errorf("announce %s: %v", topic, err)
		return err
	}
	return nil
}
