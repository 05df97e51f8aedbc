package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// QoS keys understood in Config.QoS.
const (
	QoSTelemetry = "telemetry"
	QoSCommand   = "command"
	QoSAck       = "ack"
	QoSAlarm     = "alarm"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled         bool            `json:"enabled"`
	Broker          string          `json:"broker"`
	ClientID        string          `json:"client_id"`
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	TopicPrefix     string          `json:"topic_prefix"`
	RetainTelemetry bool            `json:"retain_telemetry"`
	UseTLS          bool            `json:"use_tls"`
	ClientCert      string          `json:"client_cert"`
	ClientKey       string          `json:"client_key"`
	CABundle        string          `json:"ca_bundle"`
	AuthMethod      string          `json:"auth_method"`
	QoS             map[string]byte `json:"qos"`
	LWTTopic        string          `json:"lwt_topic"`
	LWTPayload      string          `json:"lwt_payload"`
	LWTQoS          byte            `json:"lwt_qos"`
	LWTRetain       bool            `json:"lwt_retain"`
	MaxRetries      int             `json:"max_retries"`
	BackoffMS       int             `json:"backoff_ms"`
	TLSConfig       *tls.Config     `json:"-"`
}

// DefaultTopicPrefix roots every topic of the service.
const DefaultTopicPrefix = "substation"

// SetDefaults fills unset fields. The client id gets a random suffix so that
// several simulators can share a broker.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.ClientID == "" {
		c.ClientID = "substation-" + uuid.NewString()[:8]
	}
	if c.LWTTopic == "" {
		c.LWTTopic = c.TopicPrefix + "/status"
		c.LWTRetain = true
	}
	if c.LWTPayload == "" {
		c.LWTPayload = "offline"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the connection settings when the client is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("mqtt: broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "mtls", "both":
	default:
		return fmt.Errorf("mqtt: unknown auth_method %q", c.AuthMethod)
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %s must be 0, 1 or 2", k)
		}
	}
	if c.LWTQoS > 2 {
		return errors.New("mqtt: lwt_qos must be 0, 1 or 2")
	}
	return nil
}

// Topics lists the topic names derived from a prefix.
type Topics struct {
	Telemetry string
	Command   string
	Ack       string
	Alarm     string
	Status    string
}

// Topics returns the topics used by the client.
func (c Config) Topics() Topics {
	p := c.TopicPrefix
	if p == "" {
		p = DefaultTopicPrefix
	}
	return Topics{
		Telemetry: p + "/telemetry",
		Command:   p + "/command",
		Ack:       p + "/command/ack",
		Alarm:     p + "/alarm",
		Status:    c.LWTTopic,
	}
}

func (c Config) qos(key string) byte {
	if q, ok := c.QoS[key]; ok {
		return q
	}
	return 0
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
