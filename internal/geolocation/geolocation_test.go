package geolocation

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitPending(t *testing.T, l *BrowserLocator, key string) {
	t.Helper()
	require.Eventually(t, func() bool { return l.Pending(key) }, time.Second, time.Millisecond)
}

func TestBrowserLocatorReport(t *testing.T) {
	l := NewBrowserLocator()
	svc := NewService(l, nil, time.Second, nil)

	done := make(chan struct{})
	var sample Sample
	var err error
	go func() {
		sample, err = svc.Acquire(context.Background(), "draft-1")
		close(done)
	}()

	waitPending(t, l, "draft-1")
	assert.False(t, l.Report("draft-2", Fix{Latitude: 1, Longitude: 1}))
	assert.True(t, l.Report("draft-1", Fix{Latitude: -17.78, Longitude: -63.18, Accuracy: 12}))
	<-done

	require.NoError(t, err)
	assert.Equal(t, -17.78, sample.Latitude)
	assert.Equal(t, -63.18, sample.Longitude)
	require.NotNil(t, sample.Accuracy)
	assert.Equal(t, 12.0, *sample.Accuracy)
	assert.Equal(t, SourceSensor, sample.Source)
	assert.False(t, l.Pending("draft-1"))
}

func TestBrowserLocatorFail(t *testing.T) {
	l := NewBrowserLocator()
	svc := NewService(l, nil, time.Second, nil)

	errs := make(chan error, 1)
	go func() {
		_, err := svc.Acquire(context.Background(), "k")
		errs <- err
	}()

	waitPending(t, l, "k")
	l.Fail("k", ErrorFromCode(1))
	assert.ErrorIs(t, <-errs, ErrPermissionDenied)
}

func TestAcquireTimeout(t *testing.T) {
	svc := NewService(NewBrowserLocator(), nil, 20*time.Millisecond, nil)
	_, err := svc.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAcquireSupersededRequest(t *testing.T) {
	l := NewBrowserLocator()
	first := make(chan error, 1)
	go func() {
		_, err := l.Locate(context.Background(), "k")
		first <- err
	}()
	waitPending(t, l, "k")

	second := make(chan Fix, 1)
	go func() {
		fix, _ := l.Locate(context.Background(), "k")
		second <- fix
	}()

	assert.ErrorIs(t, <-first, errSuperseded)
	waitPending(t, l, "k")
	l.Report("k", Fix{Latitude: 2, Longitude: 3})
	assert.Equal(t, 2.0, (<-second).Latitude)
}

type fixedLocator struct {
	fix Fix
	err error
}

func (f fixedLocator) Locate(context.Context, string) (Fix, error) { return f.fix, f.err }

func TestAcquireRejectsInvalidFix(t *testing.T) {
	svc := NewService(fixedLocator{fix: Fix{Latitude: math.NaN()}}, nil, time.Second, nil)
	_, err := svc.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOverride(t *testing.T) {
	svc := NewService(fixedLocator{}, nil, time.Second, nil)

	s, err := svc.Override(-17.8, -63.2)
	require.NoError(t, err)
	assert.Nil(t, s.Accuracy)
	assert.Equal(t, SourceManual, s.Source)
	assert.True(t, s.Valid())

	_, err = svc.Override(91, 0)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestSampleValid(t *testing.T) {
	var nilSample *Sample
	assert.False(t, nilSample.Valid())
	assert.False(t, (&Sample{Latitude: math.Inf(1)}).Valid())
	assert.True(t, (&Sample{Latitude: -17.78, Longitude: -63.18}).Valid())
}

func TestErrorFromCode(t *testing.T) {
	assert.ErrorIs(t, ErrorFromCode(1), ErrPermissionDenied)
	assert.ErrorIs(t, ErrorFromCode(2), ErrUnavailable)
	assert.ErrorIs(t, ErrorFromCode(3), ErrTimeout)
	assert.ErrorIs(t, ErrorFromCode(99), ErrUnavailable)
}

func TestZoomForAccuracy(t *testing.T) {
	tests := []struct {
		meters float64
		want   int
	}{
		{5, 18}, {12, 17}, {60, 16}, {300, 15}, {800, 14}, {5000, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ZoomForAccuracy(tt.meters), "accuracy %v", tt.meters)
	}
}

func TestNominatimReverse(t *testing.T) {
	var gotUA, gotLat, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLat = r.URL.Query().Get("lat")
		gotLang = r.URL.Query().Get("accept-language")
		_, _ = w.Write([]byte(`{"display_name":"Av. Busch, Santa Cruz de la Sierra, Bolivia"}`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL, "donation-console-test", "es")
	svc := NewService(fixedLocator{}, g, time.Second, nil)

	addr := svc.Address(context.Background(), Sample{Latitude: -17.78, Longitude: -63.18})
	assert.Equal(t, "Av. Busch, Santa Cruz de la Sierra, Bolivia", addr)
	assert.Equal(t, "donation-console-test", gotUA)
	assert.Equal(t, "-17.78", gotLat)
	assert.Equal(t, "es", gotLang)
}

func TestAddressIsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewService(fixedLocator{}, NewNominatimGeocoder(srv.URL, "ua", ""), time.Second, nil)
	assert.Empty(t, svc.Address(context.Background(), Sample{}))
}

func TestExpectHoldsEarlyReport(t *testing.T) {
	l := NewBrowserLocator()
	svc := NewService(l, nil, time.Second, nil)

	svc.Expect("k")
	assert.True(t, l.Pending("k"))
	require.True(t, l.Report("k", Fix{Latitude: -17.78, Longitude: -63.18, Accuracy: 9}))
	assert.False(t, l.Pending("k"))
	assert.False(t, l.Report("k", Fix{Latitude: 1, Longitude: 1}))

	sample, err := svc.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, -17.78, sample.Latitude)
	assert.False(t, l.Pending("k"))
}

func TestExpectThenLocateWaits(t *testing.T) {
	l := NewBrowserLocator()
	l.Expect("k")

	got := make(chan Fix, 1)
	go func() {
		fix, _ := l.Locate(context.Background(), "k")
		got <- fix
	}()

	time.Sleep(5 * time.Millisecond)
	require.True(t, l.Report("k", Fix{Latitude: 4, Longitude: 5}))
	assert.Equal(t, 4.0, (<-got).Latitude)
}

func TestReleaseDropsExpectedRequest(t *testing.T) {
	l := NewBrowserLocator()
	l.Expect("k")
	l.Release("k")
	assert.False(t, l.Pending("k"))
	assert.False(t, l.Report("k", Fix{Latitude: 1, Longitude: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Locate(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.Pending("k"))
}
