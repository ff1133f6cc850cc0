// Package mqtt publishes DESS schedules to the battery system over MQTT and
// tracks their acknowledgments.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dessplan/core/control"
	"github.com/kilianp07/dessplan/infra/logger"
)

// Default topics used when none are configured.
const (
	DefaultScheduleTopic = "dess/schedule"
	DefaultAckTopic      = "dess/schedule/ack"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	ScheduleTopic string          `json:"schedule_topic"`
	AckTopic      string          `json:"ack_topic"`
	Retain        bool            `json:"retain"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	AuthMethod    string          `json:"auth_method"`
	QoS           map[string]byte `json:"qos"`
	LWTTopic      string          `json:"lwt_topic"`
	LWTPayload    string          `json:"lwt_payload"`
	LWTQoS        byte            `json:"lwt_qos"`
	LWTRetain     bool            `json:"lwt_retain"`
	MaxRetries    int             `json:"max_retries"`
	BackoffMS     int             `json:"backoff_ms"`
	TLSConfig     *tls.Config     `json:"-"`
}

// SetDefaults fills the topics, retry count and backoff.
func (c *Config) SetDefaults() {
	if c.ScheduleTopic == "" {
		c.ScheduleTopic = DefaultScheduleTopic
	}
	if c.AckTopic == "" {
		c.AckTopic = DefaultAckTopic
	}
	if c.ClientID == "" {
		c.ClientID = "dessplan"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt qos %s must be 0, 1 or 2, got %d", k, q)
		}
	}
	if c.LWTQoS > 2 {
		return fmt.Errorf("mqtt lwt_qos must be 0, 1 or 2, got %d", c.LWTQoS)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements control.SchedulePublisher using Eclipse Paho.
type PahoClient struct {
	cli           pahoClient
	scheduleTopic string
	ackTopic      string
	retain        bool
	qos           map[string]byte

	mu sync.Mutex
	// pending holds schedules awaiting an ack, acked the most recent ack
	// ids no waiter has collected yet.
	pending    map[string]pendingAck
	acked      []string
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

const (
	// maxAcked bounds the acks kept for a later WaitForAck.
	maxAcked = 32
	// pendingTTL drops schedules nobody waited for and no ack arrived for.
	pendingTTL = 10 * time.Minute
)

type pendingAck struct {
	ch   chan struct{}
	sent time.Time
}

var _ control.SchedulePublisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ack topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		scheduleTopic: cfg.ScheduleTopic,
		ackTopic:      cfg.AckTopic,
		retain:        cfg.Retain,
		pending:       make(map[string]pendingAck),
		logger:        log,
		qos:           cfg.QoS,
		maxRetries:    cfg.MaxRetries,
		backoff:       time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.ackTopic, pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
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
	if cfg.UseTLS {
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
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pa, ok := p.pending[m.MessageID]
	if !ok {
		return
	}
	delete(p.pending, m.MessageID)
	select {
	case pa.ch <- struct{}{}:
	default:
	}
	p.acked = append(p.acked, m.MessageID)
	if len(p.acked) > maxAcked {
		p.acked = p.acked[len(p.acked)-maxAcked:]
	}
	p.logger.Infof("received ack %s", m.MessageID)
}

// takeAcked reports whether an ack for id arrived before anyone waited for
// it and forgets it. The caller holds p.mu.
func (p *PahoClient) takeAcked(id string) bool {
	for i, a := range p.acked {
		if a == id {
			p.acked = append(p.acked[:i], p.acked[i+1:]...)
			return true
		}
	}
	return false
}

// prunePending drops entries older than pendingTTL. The caller holds p.mu.
func (p *PahoClient) prunePending(now time.Time) {
	for id, pa := range p.pending {
		if now.Sub(pa.sent) > pendingTTL {
			delete(p.pending, id)
		}
	}
}

// PublishSchedule sends the schedule to the schedule topic, retrying with
// exponential backoff, and returns the message identifier.
func (p *PahoClient) PublishSchedule(ctx context.Context, s control.Schedule) (string, error) {
	msgID := uuid.NewString()
	payload, err := json.Marshal(s.Message(msgID))
	if err != nil {
		return "", err
	}

	// register before publishing so a fast ack is not lost
	now := time.Now()
	p.mu.Lock()
	p.prunePending(now)
	p.pending[msgID] = pendingAck{ch: make(chan struct{}, 1), sent: now}
	p.mu.Unlock()

	if err := p.publish(ctx, payload); err != nil {
		p.mu.Lock()
		delete(p.pending, msgID)
		p.mu.Unlock()
		return "", err
	}
	p.logger.Infof("sent schedule %s (%d slots) to %s", msgID, len(s.Decisions), p.scheduleTopic)
	return msgID, nil
}

func (p *PahoClient) publish(ctx context.Context, payload []byte) error {
	for attempt := 0; ; attempt++ {
		token := p.cli.Publish(p.scheduleTopic, p.qosFor("schedule"), p.retain, payload)
		token.Wait()
		err := token.Error()
		if err == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, err)
		if attempt >= p.maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
}

// WaitForAck blocks until an ack for the given message ID is received or
// timeout. An ack that arrived before the call counts.
func (p *PahoClient) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	pa, ok := p.pending[messageID]
	if !ok {
		acked := p.takeAcked(messageID)
		p.mu.Unlock()
		if acked {
			return true, nil
		}
		return false, fmt.Errorf("unknown message %s", messageID)
	}
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-pa.ch:
		p.mu.Lock()
		p.takeAcked(messageID)
		p.mu.Unlock()
		return true, nil
	case <-timer.C:
		p.mu.Lock()
		delete(p.pending, messageID)
		p.mu.Unlock()
		return false, fmt.Errorf("%w: message %s", control.ErrAckTimeout, messageID)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
