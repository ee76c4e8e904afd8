package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultAcquireTimeout bounds a single high-accuracy reading.
const DefaultAcquireTimeout = 15 * time.Second

type Service struct {
	locator  Locator
	geocoder Geocoder
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewService(locator Locator, geocoder Geocoder, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		locator:  locator,
		geocoder: geocoder,
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
}

// Acquire requests one fresh reading for key within the bounded wait.
func (s *Service) Acquire(ctx context.Context, key string) (Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fix, err := s.locator.Locate(ctx, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		return Sample{}, err
	}
	if !validCoordinates(fix.Latitude, fix.Longitude) {
		return Sample{}, fmt.Errorf("%w: sensor reported %v,%v", ErrUnavailable, fix.Latitude, fix.Longitude)
	}

	accuracy := fix.Accuracy
	return Sample{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  &accuracy,
		Source:    SourceSensor,
		TakenAt:   s.now(),
	}, nil
}

// Expect prepares the locator for an Acquire on key that is about to start,
// so an early reading is not lost. It is a no-op for locators that do not
// park requests.
func (s *Service) Expect(key string) {
	if e, ok := s.locator.(Expecter); ok {
		e.Expect(key)
	}
}

// Release drops any prepared or waiting request for key.
func (s *Service) Release(key string) {
	if e, ok := s.locator.(Expecter); ok {
		e.Release(key)
	}
}

// Override builds a user-asserted sample from a dragged marker or a map click.
func (s *Service) Override(lat, lng float64) (Sample, error) {
	if !validCoordinates(lat, lng) {
		return Sample{}, ErrInvalidPosition
	}
	return Sample{
		Latitude:  lat,
		Longitude: lng,
		Source:    SourceManual,
		TakenAt:   s.now(),
	}, nil
}

// Address resolves a human-readable address for the sample. Failures are
// logged and yield an empty string.
func (s *Service) Address(ctx context.Context, sample Sample) string {
	if s.geocoder == nil {
		return ""
	}
	addr, err := s.geocoder.Reverse(ctx, sample.Latitude, sample.Longitude)
	if err != nil {
		s.log.Debug("reverse geocoding failed",
			zap.Float64("lat", sample.Latitude),
			zap.Float64("lng", sample.Longitude),
			zap.Error(err),
		)
		return ""
	}
	return addr
}
