package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/substation/core/command"
	"github.com/kilianp07/substation/core/engine"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/core/random"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0644))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	opts, err = NewClientOptions(Config{Broker: "tcp://localhost:1883", AuthMethod: "mtls", Username: "u"})
	require.Error(t, err, "mtls without certificates")
	assert.Nil(t, opts)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, DefaultTopicPrefix, cfg.TopicPrefix)
	assert.Contains(t, cfg.ClientID, "substation-")
	assert.Equal(t, "substation/status", cfg.LWTTopic)
	assert.Equal(t, "offline", cfg.LWTPayload)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate(), "disabled client needs no broker")

	cfg.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Broker = "tcp://localhost:1883"
	assert.NoError(t, cfg.Validate())
	cfg.QoS = map[string]byte{QoSTelemetry: 3}
	assert.Error(t, cfg.Validate())
	cfg.QoS = nil
	cfg.AuthMethod = "kerberos"
	assert.Error(t, cfg.Validate())

	topics := Config{TopicPrefix: "site/a"}.Topics()
	assert.Equal(t, "site/a/telemetry", topics.Telemetry)
	assert.Equal(t, "site/a/command", topics.Command)
	assert.Equal(t, "site/a/command/ack", topics.Ack)
	assert.Equal(t, "site/a/alarm", topics.Alarm)
}

func newTestClient(t *testing.T, mc *mockClient, cfg Config, exec Executor) *Client {
	t.Helper()
	useMock(t, mc)
	if cfg.Broker == "" {
		cfg.Broker = "tcp://localhost:1883"
	}
	cli, err := NewClient(cfg, exec)
	require.NoError(t, err)
	return cli
}

func TestConnectSubscribesAndAnnounces(t *testing.T) {
	mc := &mockClient{}
	dispatcher := command.NewDispatcher(engine.New(engine.Config{}, random.Fixed(0)), nil, nil)
	newTestClient(t, mc, Config{QoS: map[string]byte{QoSCommand: 1}}, dispatcher)

	require.Len(t, mc.subscribed, 1)
	assert.Equal(t, "substation/command", mc.subscribed[0].topic)
	assert.Equal(t, byte(1), mc.subscribed[0].qos)
	status := mc.on("substation/status")
	require.Len(t, status, 1)
	assert.Equal(t, "online", string(status[0].payload))
	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "offline", string(mc.opts.WillPayload))
}

func TestConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	useMock(t, mc)
	_, err := NewClient(Config{Broker: "tcp://localhost:1883"}, nil)
	assert.Error(t, err)
}

func acksOn(t *testing.T, mc *mockClient, n int) []published {
	t.Helper()
	require.Eventually(t, func() bool { return len(mc.on("substation/command/ack")) == n }, time.Second, time.Millisecond)
	return mc.on("substation/command/ack")
}

func TestCommandRoundTrip(t *testing.T) {
	mc := &mockClient{}
	eng := engine.New(engine.Config{}, random.Fixed(0))
	cli := newTestClient(t, mc, Config{}, command.NewDispatcher(eng, nil, nil))
	defer cli.Disconnect()

	mc.deliver("substation/command", []byte(`{"id":"c42","type":"toggle_breaker","device":"breaker2"}`))
	acks := acksOn(t, mc, 1)
	var res command.Result
	require.NoError(t, json.Unmarshal(acks[0].payload, &res))
	assert.Equal(t, "c42", res.ID)
	assert.True(t, res.OK)
	assert.Equal(t, "Open", res.State)
	assert.Equal(t, model.BreakerOpen, eng.Snapshot().Breakers[1])

	mc.deliver("substation/command", []byte(`{"type":"set_tap","device":"tap1","position":42}`))
	mc.deliver("substation/command", []byte(`not json`))
	acks = acksOn(t, mc, 3)
	for _, a := range acks[1:] {
		require.NoError(t, json.Unmarshal(a.payload, &res))
		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Error)
	}
}

func TestPendingAckDoesNotBlockDelivery(t *testing.T) {
	mc := &mockClient{hold: make(chan struct{}), holdTopic: "substation/command/ack"}
	eng := engine.New(engine.Config{}, random.Fixed(0))
	cli := newTestClient(t, mc, Config{QoS: map[string]byte{QoSAck: 1}}, command.NewDispatcher(eng, nil, nil))

	delivered := make(chan struct{})
	go func() {
		mc.deliver("substation/command", []byte(`{"id":"c1","type":"toggle_breaker","device":"breaker1"}`))
		mc.deliver("substation/command", []byte(`{"id":"c2","type":"toggle_breaker","device":"breaker1"}`))
		close(delivered)
	}()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message handler blocked behind an unacknowledged publish")
	}

	close(mc.hold)
	acks := acksOn(t, mc, 2)
	var first, second command.Result
	require.NoError(t, json.Unmarshal(acks[0].payload, &first))
	require.NoError(t, json.Unmarshal(acks[1].payload, &second))
	assert.Equal(t, "c1", first.ID)
	assert.Equal(t, "Open", first.State)
	assert.Equal(t, "c2", second.ID)
	assert.Equal(t, "Closed", second.State)

	cli.Disconnect()
	mc.deliver("substation/command", []byte(`{"id":"late","type":"clear_alarm"}`))
	assert.Len(t, mc.on("substation/command/ack"), 2, "commands after disconnect are ignored")
}

func TestPublishSnapshotQoSAndRetain(t *testing.T) {
	mc := &mockClient{}
	cli := newTestClient(t, mc, Config{RetainTelemetry: true, QoS: map[string]byte{QoSTelemetry: 2}}, nil)

	snap := engine.New(engine.Config{}, random.Fixed(0)).Step()
	require.NoError(t, cli.PublishSnapshot(snap))
	msgs := mc.on("substation/telemetry")
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(2), msgs[0].qos)
	assert.True(t, msgs[0].retained)

	var decoded model.Snapshot
	require.NoError(t, json.Unmarshal(msgs[0].payload, &decoded))
	assert.Equal(t, snap.Seq, decoded.Seq)
	assert.Equal(t, snap.Buses, decoded.Buses)
	assert.Equal(t, snap.Breakers, decoded.Breakers)
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{}
	cli := newTestClient(t, mc, Config{MaxRetries: 1, BackoffMS: 1}, nil)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	require.NoError(t, cli.PublishSnapshot(model.Snapshot{}))
	assert.Len(t, mc.on("substation/telemetry"), 2)

	mc.publishErrs = []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}
	err := cli.PublishAlarm(model.Snapshot{Alarm: model.AlarmFaultDetected})
	assert.Error(t, err)
	assert.Len(t, mc.on("substation/alarm"), 2)
}

func TestDisconnectPublishesOffline(t *testing.T) {
	mc := &mockClient{}
	cli := newTestClient(t, mc, Config{}, nil)
	cli.Disconnect()
	status := mc.on("substation/status")
	require.Len(t, status, 2)
	assert.Equal(t, "offline", string(status[1].payload))
	assert.True(t, status[1].retained)
}
