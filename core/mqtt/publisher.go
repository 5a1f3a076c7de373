package mqtt

// Publisher delivers application state to an MQTT broker. Implementations
// must be safe for concurrent use.
type Publisher interface {
	// Publish sends payload to the given topic. Retained messages are
	// stored by the broker and replayed to late subscribers.
	Publish(topic string, payload []byte, retain bool) error

	// Close announces the offline state if one is configured and
	// disconnects from the broker.
	Close()
}
