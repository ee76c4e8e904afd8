package gateway

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/config"
	"donation-console/pkg/mqtt"
)

type recordingBroker struct {
	mu       sync.Mutex
	topics   []string
	qos      []byte
	handlers []mqtt.MessageHandler
}

func (b *recordingBroker) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.qos = append(b.qos, qos)
	b.handlers = append(b.handlers, handler)
	return nil
}

func TestMQTTDestination(t *testing.T) {
	assert.Equal(t, "/topic/donaciones", destination("", "/topic/donaciones"))
	assert.Equal(t, "consola/topic/donaciones", destination("consola/", "/topic/donaciones"))
	assert.Equal(t, "consola/metricas", destination("consola", "metricas"))
}

func TestMQTTResubscribesOnEveryConnect(t *testing.T) {
	s := NewMQTTSubscriber(config.RealtimeConfig{
		URL:            "tcp://broker:1883",
		MQTTClientID:   "donation-console",
		TopicPrefix:    "consola",
		ReconnectDelay: time.Second,
	}, nil)

	events := make(chan Event, 2)
	cfg, dest := s.clientConfig("/topic/donaciones", func(ev Event) { events <- ev })
	assert.Equal(t, "consola/topic/donaciones", dest)
	assert.True(t, cfg.CleanSession)
	assert.True(t, strings.HasPrefix(cfg.ClientID, "donation-console-"))
	assert.Equal(t, time.Second, cfg.MaxReconnectInterval)

	broker := &recordingBroker{}
	cfg.OnConnect(broker)
	cfg.OnConnect(broker)
	require.Equal(t, []string{dest, dest}, broker.topics)
	assert.Equal(t, []byte{1, 1}, broker.qos)

	broker.handlers[1](dest, []byte(`{"idDonacion":7}`))
	ev := <-events
	assert.Equal(t, "/topic/donaciones", ev.Topic)
	assert.JSONEq(t, `{"idDonacion":7}`, string(ev.Body))
	assert.False(t, ev.ReceivedAt.IsZero())
}

func TestMQTTHandlerPanicIsContained(t *testing.T) {
	s := NewMQTTSubscriber(config.RealtimeConfig{URL: "tcp://broker:1883"}, nil)
	cfg, dest := s.clientConfig("metricas", func(Event) { panic("boom") })

	broker := &recordingBroker{}
	cfg.OnConnect(broker)
	assert.NotPanics(t, func() { broker.handlers[0](dest, nil) })
}

func TestMQTTSubscribeUnreachableBroker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := NewMQTTSubscriber(config.RealtimeConfig{URL: "tcp://" + addr, ReconnectDelay: time.Second}, nil)
	_, err = s.Subscribe(context.Background(), "metricas", func(Event) {})
	assert.Error(t, err)

	_, err = s.Subscribe(context.Background(), "metricas", nil)
	assert.Error(t, err)
}
