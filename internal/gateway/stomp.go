package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StompSubscriber subscribes to STOMP topics over a WebSocket, one
// connection per subscription, reconnecting after a fixed delay.
type StompSubscriber struct {
	url    string
	prefix string
	delay  time.Duration
	dialer *websocket.Dialer
	header http.Header
	log    *zap.Logger
}

func NewStompSubscriber(brokerURL, topicPrefix string, reconnectDelay time.Duration, log *zap.Logger) *StompSubscriber {
	if log == nil {
		log = zap.NewNop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &StompSubscriber{
		url:    brokerURL,
		prefix: topicPrefix,
		delay:  reconnectDelay,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Subprotocols:     []string{"v12.stomp"},
		},
		header: http.Header{},
		log:    log,
	}
}

func (s *StompSubscriber) Subscribe(ctx context.Context, topic string, onEvent func(Event)) (Subscription, error) {
	if onEvent == nil {
		return nil, errors.New("stomp: nil event handler")
	}
	if _, err := url.Parse(s.url); err != nil {
		return nil, fmt.Errorf("stomp: invalid broker url: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &stompSubscription{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, sub, topic, onEvent)
	return sub, nil
}

func (s *StompSubscriber) run(ctx context.Context, sub *stompSubscription, topic string, onEvent func(Event)) {
	defer close(sub.done)
	log := s.log.With(zap.String("topic", topic))

	for {
		err := s.session(ctx, sub, topic, onEvent, log)
		if ctx.Err() != nil {
			log.Debug("realtime subscription closed")
			return
		}
		log.Warn("realtime connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", s.delay),
		)

		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *StompSubscriber) session(ctx context.Context, sub *stompSubscription, topic string, onEvent func(Event), log *zap.Logger) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	if !sub.setConn(ctx, conn) {
		return ctx.Err()
	}
	defer sub.setConn(ctx, nil)

	host := ""
	if u, err := url.Parse(s.url); err == nil {
		host = u.Hostname()
	}
	connect := frame{Command: "CONNECT", Headers: map[string]string{
		"accept-version": "1.2",
		"host":           host,
		"heart-beat":     "0,0",
	}}
	if err := conn.WriteMessage(websocket.TextMessage, connect.encode()); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	if err := awaitConnected(conn); err != nil {
		return err
	}

	dest := destination(s.prefix, topic)
	subscribe := frame{Command: "SUBSCRIBE", Headers: map[string]string{
		"id":          "sub-0",
		"destination": dest,
		"ack":         "auto",
	}}
	if err := conn.WriteMessage(websocket.TextMessage, subscribe.encode()); err != nil {
		return fmt.Errorf("send SUBSCRIBE: %w", err)
	}
	log.Info("realtime subscribed", zap.String("destination", dest))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f, err := decodeFrame(raw)
		if errors.Is(err, errHeartbeat) {
			continue
		}
		if err != nil {
			log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		switch f.Command {
		case "MESSAGE":
			deliver(log, onEvent, Event{Topic: topic, Body: f.Body, ReceivedAt: time.Now()})
		case "ERROR":
			return fmt.Errorf("broker error: %s", f.Headers["message"])
		}
	}
}

func awaitConnected(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		f, err := decodeFrame(raw)
		if errors.Is(err, errHeartbeat) {
			continue
		}
		if err != nil {
			return err
		}
		switch f.Command {
		case "CONNECTED":
			return nil
		case "ERROR":
			return fmt.Errorf("broker refused connection: %s", f.Headers["message"])
		default:
			return fmt.Errorf("unexpected %s frame before CONNECTED", f.Command)
		}
	}
}

// deliver runs the callback, keeping a panicking handler from killing the loop.
func deliver(log *zap.Logger, onEvent func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("realtime handler panicked", zap.Any("panic", r))
		}
	}()
	onEvent(ev)
}

type stompSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
	once sync.Once
}

func (s *stompSubscription) setConn(ctx context.Context, c *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil && ctx.Err() != nil {
		return false
	}
	s.conn = c
	return true
}

// Unsubscribe must not be called from inside the event handler.
func (s *stompSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
	<-s.done
}
