// Package gateway wraps every outbound call to the donation backend and the
// realtime invalidation channel.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"donation-console/internal/session"
)

const maxErrorBody = 4 << 10

type Options struct {
	Timeout     time.Duration
	ReadRetries int
	Logger      *zap.Logger
}

// Client calls the backend relative to a base URL. Reads are retried a
// bounded number of times; writes are sent exactly once so a failed submit
// never uploads an image twice.
type Client struct {
	baseURL string
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
	log     *zap.Logger
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		reads:   newRetryClient(opts.ReadRetries, opts.Timeout, opts.Logger),
		writes:  newRetryClient(0, opts.Timeout, opts.Logger),
		log:     opts.Logger,
	}
}

func newRetryClient(retries int, timeout time.Duration, log *zap.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveledLogger{log.Sugar()}
	return c
}

// BaseURL is the prefix every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call sends a JSON request and decodes the JSON answer into out. out may be
// nil, or a *string to receive the raw body.
func (c *Client) Call(ctx context.Context, sess *session.Session, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}
	return c.do(ctx, sess, method, path, "application/json", payload, out)
}

// CallText sends a text/plain body, as the solicitud approve/reject endpoints expect.
func (c *Client) CallText(ctx context.Context, sess *session.Session, method, path, text string, out interface{}) error {
	return c.do(ctx, sess, method, path, "text/plain", []byte(text), out)
}

func (c *Client) do(ctx context.Context, sess *session.Session, method, path, contentType string, payload []byte, out interface{}) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var body interface{}
	if payload != nil {
		body = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if sess != nil && sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	client := c.writes
	if method == http.MethodGet || method == http.MethodHead {
		client = c.reads
	}

	start := time.Now()
	// With the passthrough handler an exhausted retry still hands back the
	// last response; only a missing response is a transport failure.
	resp, err := client.Do(req)
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		c.log.Debug("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode == http.StatusForbidden {
		// A 403 with a message is a business-rule rejection; a bare one is a
		// refused credential.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if msg := envelopeMessage(raw); msg != "" {
			return &ServerError{Status: resp.StatusCode, Message: msg}
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	return decode(resp.Body, out)
}

func decode(r io.Reader, out interface{}) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}
	if s, ok := out.(*string); ok {
		*s = string(raw)
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the backend's {error} field, then {message}, then a
// short plain-text body.
func errorMessage(status int, raw []byte) string {
	if msg := envelopeMessage(raw); msg != "" {
		return msg
	}

	text := strings.TrimSpace(string(raw))
	if text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") && len(text) < 300 {
		return text
	}
	return http.StatusText(status)
}

func envelopeMessage(raw []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

// IsNetwork reports whether err is a transport failure rather than an answer.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
