package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/types"
)

// Errors returned by the MQTT notifier. Use errors.Is to check for them.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 60 * time.Second

	// DefaultTopicPrefix is used when MQTTConfig.TopicPrefix is empty.
	DefaultTopicPrefix = "exam-automation"
)

// MQTTConfig holds broker settings for the MQTT notifier.
type MQTTConfig struct {
	BrokerURL   string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// StatusTopic returns the topic an application's status events are published on.
//
// Example: exam-automation/applications/{id}/status
func StatusTopic(prefix string, applicationID uuid.UUID) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return fmt.Sprintf("%s/applications/%s/status", prefix, applicationID)
}

// publisher is the subset of the paho client the notifier uses.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTNotifier publishes each event as retained JSON on the application's status topic.
type MQTTNotifier struct {
	client  publisher
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTNotifier connects to the broker with auto-reconnect enabled.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("%w: invalid QoS %d", ErrConnectionFailed, cfg.QoS)
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return newMQTTNotifier(client, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTTNotifier(client publisher, prefix string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{
		client:  client,
		prefix:  prefix,
		qos:     qos,
		timeout: defaultPublishTimeout,
	}
}

// Notify publishes the event, waiting for the broker acknowledgement or ctx.
func (n *MQTTNotifier) Notify(ctx context.Context, e types.ApplicationEvent) error {
	if !n.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := n.client.Publish(StatusTopic(n.prefix, e.ApplicationID), n.qos, true, payload)
	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, n.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(defaultDisconnectQuiesce)
}
