package sht30logger

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTPublisher publishes each record as JSON at QoS 0.
type MQTTPublisher struct {
	client *paho.Client
	topic  string
}

// DialMQTT connects to the broker at addr (host:port).
func DialMQTT(ctx context.Context, addr, clientID, topic string) (*MQTTPublisher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mqtt: failed to dial %s: %w", addr, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: clientID,
		Conn:     conn,
	})
	ca, err := client.Connect(ctx, &paho.Connect{
		ClientID:   clientID,
		KeepAlive:  30,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mqtt: connect failed: %w", err)
	}
	if ca.ReasonCode != 0 {
		conn.Close()
		return nil, fmt.Errorf("mqtt: connect refused with reason %d", ca.ReasonCode)
	}
	return &MQTTPublisher{client: client, topic: topic}, nil
}

// WriteRecord implements Sink.
func (m *MQTTPublisher) WriteRecord(r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), mqttPublishTimeout)
	defer cancel()
	if _, err := m.client.Publish(ctx, &paho.Publish{
		QoS:     0,
		Topic:   m.topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
		},
	}); err != nil {
		return fmt.Errorf("mqtt: publish failed: %w", err)
	}
	return nil
}

func (m *MQTTPublisher) Close() error {
	return m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
