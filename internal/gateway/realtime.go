package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"donation-console/internal/config"
)

// Topics pushed by the backend. Both are payload-less: receiving one means
// "refetch the corresponding list".
const (
	TopicDonationUpdated = "donacion-actualizada"
	TopicNewMetric       = "nueva-metrica"
)

// Event is one server-push notification.
type Event struct {
	Topic      string
	Body       []byte
	ReceivedAt time.Time
}

// Subscription is a live subscription. Unsubscribe tears the connection
// down and waits for the delivery loop to stop; it is safe to call twice.
type Subscription interface {
	Unsubscribe()
}

// Subscriber opens a persistent, self-reconnecting subscription to a topic.
// Events missed while disconnected are not replayed.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error)
}

// NewSubscriber builds the subscriber selected by REALTIME_TRANSPORT.
func NewSubscriber(cfg config.RealtimeConfig, log *zap.Logger) (Subscriber, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Transport {
	case "stomp":
		return NewStompSubscriber(cfg.URL, cfg.TopicPrefix, cfg.ReconnectDelay, log), nil
	case "mqtt":
		return NewMQTTSubscriber(cfg, log), nil
	case "none", "":
		return NoopSubscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown realtime transport %q", cfg.Transport)
	}
}

func destination(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(topic, "/")
}

// NoopSubscriber never delivers anything; used when realtime is disabled.
type NoopSubscriber struct{}

func (NoopSubscriber) Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error) {
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
