package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pc6b/monkeyprint/progress"
)

const (
	DefaultTopicPrefix = "monkeyprint"
	mqttTimeout        = 10 * time.Second
)

// MQTTConfig configures an MQTTPublisher.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Prefix   string
}

// Topic returns the topic job events of the given kind are published on.
func Topic(prefix, jobID string, kind progress.EventKind) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + jobID + "/" + string(kind)
}

type publishFunc func(topic string, retained bool, payload []byte) error

// MQTTPublisher mirrors a job's status and console streams to a broker.
// Status tokens are retained so late subscribers see the current one.
type MQTTPublisher struct {
	client  mqtt.Client
	publish publishFunc
	prefix  string
	logger  *slog.Logger

	mu   sync.Mutex
	stop []func()
	wg   sync.WaitGroup
}

// NewMQTTPublisher creates a publisher. Connect must be called before
// Follow.
func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("monkeyprint-%d", time.Now().UnixNano())
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	p := newPublisher(func(topic string, retained bool, payload []byte) error {
		token := client.Publish(topic, 0, retained, payload)
		if !token.WaitTimeout(mqttTimeout) {
			return fmt.Errorf("publish %s: timeout", topic)
		}
		return token.Error()
	}, cfg.Prefix, logger)
	p.client = client
	return p
}

func newPublisher(publish publishFunc, prefix string, logger *slog.Logger) *MQTTPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTPublisher{publish: publish, prefix: prefix, logger: logger}
}

// Connect connects to the broker.
func (p *MQTTPublisher) Connect() error {
	if p.client == nil {
		return errors.New("mqtt client not configured")
	}
	token := p.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return errors.New("mqtt connect: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.logger.Info("connected to mqtt broker")
	return nil
}

// Follow publishes every event of sink under the job's topics until Close.
func (p *MQTTPublisher) Follow(jobID string, sink *progress.Sink) {
	events, unsubscribe := sink.Subscribe(progress.ConsoleBuffer)

	p.mu.Lock()
	p.stop = append(p.stop, unsubscribe)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range events {
			topic := Topic(p.prefix, jobID, ev.Kind)
			if err := p.publish(topic, ev.Kind == progress.KindStatus, []byte(ev.Text)); err != nil {
				p.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
			}
		}
	}()
}

// Close stops following, flushes queued events and disconnects.
func (p *MQTTPublisher) Close() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()

	for _, fn := range stop {
		fn()
	}
	p.wg.Wait()

	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
