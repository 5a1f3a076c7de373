package mqtt

import (
	"sort"
	"sync"

	coremqtt "github.com/laddvakt/laddvakt/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records published messages for tests.
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
	retained map[string]bool
	closed   bool

	// Err, when set, is returned by every Publish call.
	Err error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		messages: make(map[string][]byte),
		retained: make(map[string]bool),
	}
}

// Publish records the message or returns the configured error.
func (m *MockPublisher) Publish(topic string, payload []byte, retain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages[topic] = append([]byte(nil), payload...)
	m.retained[topic] = retain
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Message returns the last payload published to topic.
func (m *MockPublisher) Message(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.messages[topic]
	return p, ok
}

// Retained reports whether the last message on topic was retained.
func (m *MockPublisher) Retained(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retained[topic]
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Topics returns all topics that received at least one message, sorted.
func (m *MockPublisher) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for t := range m.messages {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
