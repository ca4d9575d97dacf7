package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
)

const (
	mqttConnectTimeout = 30 * time.Second
	mqttPublishTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// MQTTNotifier publishes events as JSON to a broker topic. It connects on
// first use because a run publishes at most one message.
type MQTTNotifier struct {
	topic     string
	opts      *mqtt.ClientOptions
	newClient func(*mqtt.ClientOptions) mqtt.Client
	client    mqtt.Client
}

// NewMQTTNotifier creates a notifier for settings. No connection is made yet.
func NewMQTTNotifier(settings *conf.MQTTSettings) *MQTTNotifier {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	opts.SetUsername(settings.Username)
	opts.SetPassword(settings.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(mqttConnectTimeout)

	return &MQTTNotifier{
		topic:     settings.Topic,
		opts:      opts,
		newClient: mqtt.NewClient,
	}
}

func (m *MQTTNotifier) Name() string { return "mqtt" }

// Notify connects if needed and publishes ev with QoS 0.
func (m *MQTTNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}

	if err := m.connect(ctx); err != nil {
		return err
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	if !waitToken(ctx, token, mqttPublishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", m.topic)
	}
	return token.Error()
}

func (m *MQTTNotifier) connect(ctx context.Context) error {
	if m.client != nil && m.client.IsConnected() {
		return nil
	}

	m.client = m.newClient(m.opts)
	token := m.client.Connect()
	if !waitToken(ctx, token, mqttConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	return nil
}

// waitToken waits for token until timeout or until ctx is done.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() error {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(mqttQuiesceMillis)
	}
	return nil
}
