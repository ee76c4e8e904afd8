package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/gateway"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]func(gateway.Event)
	unsubscribed int
	failOn       string
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, topic string, onEvent func(gateway.Event)) (gateway.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failOn {
		return nil, errors.New("broker unreachable")
	}
	f.handlers[topic] = onEvent
	return unsub{f}, nil
}

func (f *fakeSubscriber) emit(topic string) {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	h(gateway.Event{Topic: topic, ReceivedAt: time.Now()})
}

type unsub struct{ f *fakeSubscriber }

func (u unsub) Unsubscribe() {
	u.f.mu.Lock()
	u.f.unsubscribed++
	u.f.mu.Unlock()
}

// recorder logs invalidations and broadcasts in the order they happen.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Broadcast(topic string) { r.add("push:" + topic) }

type cache struct {
	name string
	rec  *recorder
}

func (c cache) Invalidate() { c.rec.add("invalidate:" + c.name) }

func TestEventsInvalidateBeforePushing(t *testing.T) {
	sub := &fakeSubscriber{handlers: map[string]func(gateway.Event){}}
	rec := &recorder{}

	b := NewBridge(sub, rec, nil).
		On(gateway.TopicDonationUpdated, cache{"donations", rec}, cache{"tracking", rec}).
		On(gateway.TopicNewMetric, cache{"metrics", rec})
	require.NoError(t, b.Start(context.Background()))

	sub.emit(gateway.TopicDonationUpdated)
	sub.emit(gateway.TopicNewMetric)

	assert.Equal(t, []string{
		"invalidate:donations",
		"invalidate:tracking",
		"push:donacion-actualizada",
		"invalidate:metrics",
		"push:nueva-metrica",
	}, rec.events)

	b.Stop()
	b.Stop()
	assert.Equal(t, 2, sub.unsubscribed)
}

func TestStartFailureTearsDown(t *testing.T) {
	sub := &fakeSubscriber{handlers: map[string]func(gateway.Event){}, failOn: gateway.TopicNewMetric}
	rec := &recorder{}

	b := NewBridge(sub, rec, nil).
		On(gateway.TopicDonationUpdated, cache{"donations", rec}).
		On(gateway.TopicNewMetric, cache{"metrics", rec})

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), gateway.TopicNewMetric)
	assert.Equal(t, 1, sub.unsubscribed)
}
