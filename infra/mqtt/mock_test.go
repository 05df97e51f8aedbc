package mqtt

import (
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient and paho.Client for tests
type mockClient struct {
	mu         sync.Mutex
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	handlers    map[string]paho.MessageHandler
	published   []published
	publishErrs []error
	connectErr  error
	// hold, when set, blocks publishes to holdTopic until it is closed.
	hold      chan struct{}
	holdTopic string
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	hold := m.hold
	if topic != m.holdTopic {
		hold = nil
	}
	m.mu.Unlock()
	if hold != nil {
		<-hold
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	m.published = append(m.published, published{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, h paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	if m.handlers == nil {
		m.handlers = map[string]paho.MessageHandler{}
	}
	m.handlers[topic] = h
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

// deliver invokes the handler subscribed to topic.
func (m *mockClient) deliver(topic string, payload []byte) {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h != nil {
		h(m, mockMessage{topic: topic, p: payload})
	}
}

func (m *mockClient) on(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
