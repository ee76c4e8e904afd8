// Package realtime turns backend push notifications into cache
// invalidations and browser pushes.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"donation-console/internal/gateway"
)

// Invalidator drops a cached list so the next read refetches it.
type Invalidator interface {
	Invalidate()
}

// Broadcaster forwards a topic to connected browsers.
type Broadcaster interface {
	Broadcast(topic string)
}

// Bridge subscribes to backend topics. For every event it first invalidates
// the caches bound to the topic, then tells browsers to refetch, so a
// browser never reads a list older than the notification it received.
type Bridge struct {
	sub gateway.Subscriber
	out Broadcaster
	log *zap.Logger

	mu      sync.Mutex
	targets map[string][]Invalidator
	order   []string
	subs    []gateway.Subscription
}

func NewBridge(sub gateway.Subscriber, out Broadcaster, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		sub:     sub,
		out:     out,
		log:     log,
		targets: make(map[string][]Invalidator),
	}
}

// On binds caches to a topic. Call before Start.
func (b *Bridge) On(topic string, targets ...Invalidator) *Bridge {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.targets[topic]; !ok {
		b.order = append(b.order, topic)
	}
	b.targets[topic] = append(b.targets[topic], targets...)
	return b
}

// Start opens one subscription per bound topic. On error every
// subscription opened so far is torn down.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	topics := append([]string(nil), b.order...)
	b.mu.Unlock()

	for _, topic := range topics {
		topic := topic
		s, err := b.sub.Subscribe(ctx, topic, func(ev gateway.Event) { b.handle(topic, ev) })
		if err != nil {
			b.Stop()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		b.mu.Lock()
		b.subs = append(b.subs, s)
		b.mu.Unlock()
		b.log.Info("realtime subscription started", zap.String("topic", topic))
	}
	return nil
}

// Stop ends every subscription. It must not be called from inside an
// event callback.
func (b *Bridge) Stop() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (b *Bridge) handle(topic string, ev gateway.Event) {
	b.mu.Lock()
	targets := b.targets[topic]
	b.mu.Unlock()

	for _, t := range targets {
		t.Invalidate()
	}
	if b.out != nil {
		b.out.Broadcast(topic)
	}
	b.log.Debug("realtime event applied",
		zap.String("topic", topic),
		zap.Int("caches", len(targets)),
		zap.Time("received_at", ev.ReceivedAt),
	)
}
