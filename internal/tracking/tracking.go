// Package tracking reads the delivery route history of donations in transit.
package tracking

import (
	"context"
	"net/http"
	"sync"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

const unknownOrigin = "No especificado"

type Point struct {
	Latitude  float64 `json:"latitud"`
	Longitude float64 `json:"longitud"`
}

// Record is one donation's route: past points plus the current position.
type Record struct {
	ID         int64   `json:"idSeguimiento"`
	DonationID int64   `json:"idDonacion"`
	Status     string  `json:"estado"`
	Latitude   float64 `json:"latitud"`
	Longitude  float64 `json:"longitud"`
	Origin     string  `json:"origen"`
	History    []Point `json:"historial"`
}

// Route returns the history followed by the current position.
func (r Record) Route() []Point {
	out := make([]Point, 0, len(r.History)+1)
	out = append(out, r.History...)
	return append(out, Point{Latitude: r.Latitude, Longitude: r.Longitude})
}

// Service caches the tracking list until a donation update invalidates it.
type Service struct {
	client *gateway.Client

	mu      sync.RWMutex
	records []Record
	loaded  bool
	gen     uint64
}

func NewService(client *gateway.Client) *Service {
	return &Service{client: client}
}

func (s *Service) List(ctx context.Context, sess *session.Session, force bool) ([]Record, error) {
	s.mu.RLock()
	if s.loaded && !force {
		out := s.records
		s.mu.RUnlock()
		return out, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	var records []Record
	if err := s.client.Call(ctx, sess, http.MethodGet, "/seguimientodonaciones/completos", nil, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Origin == "" {
			records[i].Origin = unknownOrigin
		}
		if records[i].History == nil {
			records[i].History = []Point{}
		}
	}

	s.mu.Lock()
	s.records = records
	s.loaded = s.gen == gen
	s.mu.Unlock()
	return records, nil
}

// Invalidate drops the cached list.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.records = nil
	s.gen++
	s.mu.Unlock()
}

// DeliveredCount is the number of donations whose tracking reached delivery.
func (s *Service) DeliveredCount(ctx context.Context, sess *session.Session) (int64, error) {
	var n int64
	if err := s.client.Call(ctx, sess, http.MethodGet, "/seguimientodonaciones/contar-entregadas", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}
