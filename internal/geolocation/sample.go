// Package geolocation acquires the position attached to a donation status
// update, either from the device sensor or from a pin the user drops.
package geolocation

import (
	"errors"
	"math"
	"time"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
	ErrTimeout          = errors.New("location request timed out")
	ErrInvalidPosition  = errors.New("coordinates out of range")
)

type Source string

const (
	SourceSensor Source = "sensor"
	SourceManual Source = "manual"
)

// Sample is one accepted position. Accuracy is nil for manual samples;
// it is advisory and never blocks a submission.
type Sample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy"`
	Address   string    `json:"address,omitempty"`
	Source    Source    `json:"source"`
	TakenAt   time.Time `json:"takenAt"`
}

// Valid reports whether the sample has usable coordinates.
func (s *Sample) Valid() bool {
	return s != nil && validCoordinates(s.Latitude, s.Longitude)
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Fix is a raw device reading.
type Fix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// ErrorFromCode maps a browser GeolocationPositionError code.
func ErrorFromCode(code int) error {
	switch code {
	case 1:
		return ErrPermissionDenied
	case 3:
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}

// ZoomForAccuracy picks a map zoom level that frames the accuracy radius.
func ZoomForAccuracy(meters float64) int {
	switch {
	case meters < 10:
		return 18
	case meters < 50:
		return 17
	case meters < 100:
		return 16
	case meters < 500:
		return 15
	case meters < 1000:
		return 14
	default:
		return 13
	}
}
