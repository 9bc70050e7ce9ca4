package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 10 * time.Second

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes notifications as JSON on an alert topic, for dashboards
// subscribed to the broker.
type MQTT struct {
	client mqttPublisher
	topic  string
}

func NewMQTT(client mqttPublisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

func (m *MQTT) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("mqtt notify: %w", err)
	}

	token := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt notify: publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt notify: %w", err)
	}
	return nil
}
