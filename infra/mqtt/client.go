package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/substation/core/command"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/infra/logger"
)

// Executor runs operator commands. *command.Dispatcher implements it.
type Executor interface {
	Execute(cmd command.Command, source string) (command.Result, error)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// CommandQueueSize bounds the commands waiting for the worker. Commands
// arriving on a full queue are dropped and logged.
const CommandQueueSize = 64

// Client publishes substation telemetry and executes commands received on
// the command topic, answering each one on the ack topic. Commands run on a
// single worker in arrival order; the paho handler only enqueues them, so an
// ack waiting for its PUBACK never blocks incoming traffic.
type Client struct {
	cli     pahoClient
	cfg     Config
	topics  Topics
	exec    Executor
	logger  logger.Logger
	backoff time.Duration

	mu       sync.Mutex
	commands chan []byte
	closed   bool
	wg       sync.WaitGroup
}

// NewClient connects to the MQTT broker. When exec is non-nil the client
// subscribes to the command topic on every (re)connection.
func NewClient(cfg Config, exec Executor) (*Client, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_client")
	c := &Client{
		cfg:     cfg,
		topics:  cfg.Topics(),
		exec:    exec,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	if exec != nil {
		c.commands = make(chan []byte, CommandQueueSize)
		c.wg.Add(1)
		go c.runCommands()
	}

	opts.OnConnect = func(pc paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if token := pc.Publish(c.topics.Status, cfg.LWTQoS, cfg.LWTRetain, "online"); token.Wait() && token.Error() != nil {
			log.Errorf("status publish error: %v", token.Error())
		}
		if c.exec == nil {
			return
		}
		if token := pc.Subscribe(c.topics.Command, cfg.qos(QoSCommand), c.onCommand); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	cli := newMQTTClient(opts)
	c.cli = cli
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		c.stopCommands()
		return nil, token.Error()
	}
	return c, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS || cfg.AuthMethod == "mtls" || cfg.AuthMethod == "both" {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// Topics returns the topics in use.
func (c *Client) Topics() Topics { return c.topics }

// publish sends payload, retrying with exponential backoff.
func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) error {
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		token := c.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		err = token.Error()
		if err == nil {
			return nil
		}
		c.logger.Errorf("publish to %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < c.cfg.MaxRetries {
			time.Sleep(c.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, err)
}

// PublishSnapshot sends snap as JSON on the telemetry topic.
func (c *Client) PublishSnapshot(snap model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.publish(c.topics.Telemetry, c.cfg.qos(QoSTelemetry), c.cfg.RetainTelemetry, payload)
}

// AlarmMessage is the payload sent on the alarm topic.
type AlarmMessage struct {
	Alarm model.AlarmState `json:"alarm"`
	Seq   uint64           `json:"seq"`
	Time  time.Time        `json:"time"`
}

// PublishAlarm sends the alarm state as a retained message.
func (c *Client) PublishAlarm(snap model.Snapshot) error {
	payload, err := json.Marshal(AlarmMessage{Alarm: snap.Alarm, Seq: snap.Seq, Time: snap.Time})
	if err != nil {
		return err
	}
	return c.publish(c.topics.Alarm, c.cfg.qos(QoSAlarm), true, payload)
}

func (c *Client) onCommand(_ paho.Client, msg paho.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.commands <- payload:
	default:
		c.logger.Errorf("command queue full, dropping message on %s", msg.Topic())
	}
}

func (c *Client) runCommands() {
	defer c.wg.Done()
	for payload := range c.commands {
		c.handleCommand(payload)
	}
}

func (c *Client) stopCommands() {
	if c.commands == nil {
		return
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.commands)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) handleCommand(payload []byte) {
	var cmd command.Command
	var res command.Result
	if err := json.Unmarshal(payload, &cmd); err != nil {
		c.logger.Errorf("failed to decode command: %v", err)
		res = command.Result{Error: fmt.Sprintf("%v: %v", model.ErrInvalidInput, err), Time: time.Now()}
	} else {
		res, _ = c.exec.Execute(cmd, "mqtt")
	}
	out, err := json.Marshal(res)
	if err != nil {
		c.logger.Errorf("encode ack: %v", err)
		return
	}
	if err := c.publish(c.topics.Ack, c.cfg.qos(QoSAck), false, out); err != nil {
		c.logger.Errorf("ack %s: %v", res.ID, err)
	}
}

// Disconnect drains the queued commands, publishes the offline status and
// closes the connection.
func (c *Client) Disconnect() {
	c.stopCommands()
	if c.cli == nil || !c.cli.IsConnected() {
		return
	}
	if c.cfg.LWTTopic != "" {
		c.cli.Publish(c.cfg.LWTTopic, c.cfg.LWTQoS, c.cfg.LWTRetain, c.cfg.LWTPayload).WaitTimeout(time.Second)
	}
	c.cli.Disconnect(250)
}
