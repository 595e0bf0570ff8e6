package sht30logger

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mqttTestAddr = "127.0.0.1:18831"

// Spin up an in-process broker.
func startBroker(t *testing.T) {
	t.Helper()
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		Address: mqttTestAddr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { broker.Close() })
}

func subscribe(ctx context.Context, t *testing.T, topic string) <-chan []byte {
	t.Helper()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", mqttTestAddr)
	require.NoError(t, err)

	received := make(chan []byte, 4)
	client := paho.NewClient(paho.ClientConfig{
		ClientID: "subscriber",
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pub paho.PublishReceived) (bool, error) {
				received <- pub.Packet.Payload
				return true, nil
			},
		},
	})
	_, err = client.Connect(ctx, &paho.Connect{ClientID: "subscriber", KeepAlive: 5})
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(&paho.Disconnect{ReasonCode: 0}) })

	_, err = client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 0}},
	})
	require.NoError(t, err)
	return received
}

func TestMQTTPublisher(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	startBroker(t)
	received := subscribe(ctx, t, "sht30/records")

	pub, err := DialMQTT(ctx, mqttTestAddr, "sht30logger-test", "sht30/records")
	require.NoError(t, err)
	require.NoError(t, pub.WriteRecord(testRecord))

	select {
	case payload := <-received:
		var got Record
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, testRecord.Session, got.Session)
		assert.Equal(t, testRecord.Seq, got.Seq)
		assert.Equal(t, testRecord.Filtered, got.Filtered)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
	assert.NoError(t, pub.Close())
}

func TestDialMQTT_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := DialMQTT(ctx, "127.0.0.1:1", "sht30logger-test", "sht30/records")
	assert.Error(t, err)
}
