package geolocation

import (
	"context"
	"errors"
	"sync"
)

// Locator produces a fresh device reading for key. Implementations must
// never return a cached reading.
type Locator interface {
	Locate(ctx context.Context, key string) (Fix, error)
}

var errSuperseded = errors.New("location request superseded")

type locateResult struct {
	fix Fix
	err error
}

// Expecter is implemented by locators that can accept a reading before the
// matching Locate call starts waiting.
type Expecter interface {
	Expect(key string)
	Release(key string)
}

type pendingRequest struct {
	ch       chan locateResult
	claimed  bool
	resolved bool
}

// BrowserLocator parks a request until the browser that owns key reports a
// reading or an error. Reports for keys with no pending or expected request
// are dropped.
type BrowserLocator struct {
	mu      sync.Mutex
	pending map[string]*pendingRequest
}

func NewBrowserLocator() *BrowserLocator {
	return &BrowserLocator{pending: make(map[string]*pendingRequest)}
}

// Expect opens a slot for key so a report that arrives before Locate runs is
// held for it. Any earlier request for key is superseded.
func (l *BrowserLocator) Expect(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.supersedeLocked(key)
	l.pending[key] = &pendingRequest{ch: make(chan locateResult, 1)}
}

// Release forgets any request for key. A Locate already waiting returns when
// its context ends.
func (l *BrowserLocator) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, key)
}

func (l *BrowserLocator) Locate(ctx context.Context, key string) (Fix, error) {
	l.mu.Lock()
	if err := ctx.Err(); err != nil {
		l.mu.Unlock()
		return Fix{}, locateCtxErr(err)
	}
	req, ok := l.pending[key]
	if !ok || req.claimed {
		l.supersedeLocked(key)
		req = &pendingRequest{ch: make(chan locateResult, 1)}
		l.pending[key] = req
	}
	req.claimed = true
	if req.resolved {
		delete(l.pending, key)
	}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.pending[key] == req {
			delete(l.pending, key)
		}
		l.mu.Unlock()
	}()

	select {
	case res := <-req.ch:
		return res.fix, res.err
	case <-ctx.Done():
		return Fix{}, locateCtxErr(ctx.Err())
	}
}

func locateCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Report delivers a reading. It returns false when nothing was waiting.
func (l *BrowserLocator) Report(key string, fix Fix) bool {
	return l.resolve(key, locateResult{fix: fix})
}

// Fail delivers a sensor error such as ErrPermissionDenied.
func (l *BrowserLocator) Fail(key string, err error) bool {
	return l.resolve(key, locateResult{err: err})
}

// Pending reports whether a request for key is waiting on the browser.
func (l *BrowserLocator) Pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.pending[key]
	return ok && !req.resolved
}

func (l *BrowserLocator) supersedeLocked(key string) {
	prev, ok := l.pending[key]
	if !ok {
		return
	}
	delete(l.pending, key)
	if prev.claimed && !prev.resolved {
		prev.ch <- locateResult{err: errSuperseded}
	}
}

func (l *BrowserLocator) resolve(key string, res locateResult) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.pending[key]
	if !ok || req.resolved {
		return false
	}
	req.resolved = true
	req.ch <- res
	if req.claimed {
		delete(l.pending, key)
	}
	return true
}
