package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientOptions(t *testing.T) {
	var got Subscriber
	cfg := &Config{
		Broker:               "tcp://broker:1883",
		ClientID:             "donation-console-1",
		Username:             "consola",
		CleanSession:         true,
		KeepAlive:            30,
		ConnectTimeout:       10,
		AutoReconnect:        true,
		MaxReconnectInterval: 5 * time.Second,
		OnConnect:            func(s Subscriber) { got = s },
	}
	c := &Client{config: cfg, log: zap.NewNop()}

	opts := clientOptions(cfg, c, c.log)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:1883", opts.Servers[0].Host)
	assert.Equal(t, "donation-console-1", opts.ClientID)
	assert.Equal(t, "consola", opts.Username)
	assert.True(t, opts.CleanSession)
	assert.True(t, opts.AutoReconnect)
	assert.Equal(t, int64(30), opts.KeepAlive)
	assert.Equal(t, 10*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 5*time.Second, opts.MaxReconnectInterval)

	opts.OnConnect(nil)
	assert.Same(t, c, got)
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c := NewClient(&Config{Broker: "tcp://127.0.0.1:1", ClientID: "x"})
	assert.False(t, c.IsConnected())
}
