package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"donation-console/internal/config"
	"donation-console/pkg/mqtt"
)

// MQTTSubscriber receives the same invalidation topics from an MQTT broker.
// Each subscription owns its own client so that Unsubscribe tears the
// connection down, matching the STOMP transport.
type MQTTSubscriber struct {
	cfg config.RealtimeConfig
	log *zap.Logger
}

func NewMQTTSubscriber(cfg config.RealtimeConfig, log *zap.Logger) *MQTTSubscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &MQTTSubscriber{cfg: cfg, log: log}
}

func (s *MQTTSubscriber) Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error) {
	if onEvent == nil {
		return nil, errors.New("mqtt: nil event handler")
	}

	cfg, dest := s.clientConfig(topic, onEvent)
	client := mqtt.NewClient(cfg)

	if err := client.Connect(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &mqttSubscription{client: client, dest: dest, cancel: cancel}
	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()
	return sub, nil
}

// clientConfig builds the broker client settings for one topic. A clean
// session forgets subscriptions, so OnConnect subscribes again after every
// reconnect.
func (s *MQTTSubscriber) clientConfig(topic string, onEvent func(Event)) (*mqtt.Config, string) {
	dest := destination(s.cfg.TopicPrefix, topic)
	log := s.log.With(zap.String("topic", topic))

	handler := func(_ string, payload []byte) {
		deliver(log, onEvent, Event{Topic: topic, Body: payload, ReceivedAt: time.Now()})
	}

	return &mqtt.Config{
		Broker:               s.cfg.URL,
		ClientID:             fmt.Sprintf("%s-%s", s.cfg.MQTTClientID, uuid.NewString()[:8]),
		Username:             s.cfg.MQTTUsername,
		Password:             s.cfg.MQTTPassword,
		CleanSession:         true,
		KeepAlive:            30,
		ConnectTimeout:       10,
		AutoReconnect:        true,
		MaxReconnectInterval: s.cfg.ReconnectDelay,
		Logger:               s.log,
		OnConnect: func(c mqtt.Subscriber) {
			if err := c.Subscribe(dest, 1, handler); err != nil {
				log.Error("mqtt resubscribe failed", zap.Error(err))
			}
		},
	}, dest
}

type mqttSubscription struct {
	client *mqtt.Client
	dest   string
	cancel context.CancelFunc
	once   sync.Once
}

func (s *mqttSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		if s.client.IsConnected() {
			_ = s.client.Unsubscribe(s.dest)
		}
		s.client.Disconnect()
	})
}
