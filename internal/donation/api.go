package donation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

// UpdateRequest is the combined status update body.
type UpdateRequest struct {
	CIUsuario string  `json:"ciUsuario"`
	Estado    Status  `json:"estado"`
	Imagen    *string `json:"imagen"`
	Latitud   float64 `json:"latitud"`
	Longitud  float64 `json:"longitud"`
}

// UpdateResult is what the backend reports after applying an update.
type UpdateResult struct {
	Image       *string
	DeliveredAt *time.Time
	Status      Status
}

// Backend is the remote side of the donation workflow.
type Backend interface {
	List(ctx context.Context, sess *session.Session) ([]*Donation, error)
	Update(ctx context.Context, sess *session.Session, id int64, req UpdateRequest) (*UpdateResult, error)
}

type HTTPBackend struct {
	client *gateway.Client
}

func NewHTTPBackend(client *gateway.Client) *HTTPBackend {
	return &HTTPBackend{client: client}
}

func (b *HTTPBackend) List(ctx context.Context, sess *session.Session) ([]*Donation, error) {
	var records []record
	if err := b.client.Call(ctx, sess, http.MethodGet, "/donaciones", nil, &records); err != nil {
		return nil, err
	}

	out := make([]*Donation, 0, len(records))
	for _, r := range records {
		out = append(out, r.toDonation())
	}
	return out, nil
}

func (b *HTTPBackend) Update(ctx context.Context, sess *session.Session, id int64, req UpdateRequest) (*UpdateResult, error) {
	var r record
	if err := b.client.Call(ctx, sess, http.MethodPost, fmt.Sprintf("/donaciones/actualizar/%d", id), req, &r); err != nil {
		return nil, err
	}
	return &UpdateResult{
		Image:       r.Imagen,
		DeliveredAt: parseTime(r.FechaEntrega),
		Status:      Status(r.Estado),
	}, nil
}

// ApprovedTotal returns the number of approved requests turned into donations.
func (b *HTTPBackend) ApprovedTotal(ctx context.Context, sess *session.Session) (int64, error) {
	var total int64
	if err := b.client.Call(ctx, sess, http.MethodGet, "/donaciones/total", nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// record mirrors the backend's donation JSON.
type record struct {
	IDDonacion      int64      `json:"idDonacion"`
	Codigo          string     `json:"codigo"`
	Encargado       *encargado `json:"encargado"`
	Imagen          *string    `json:"imagen"`
	FechaEntrega    *string    `json:"fechaEntrega"`
	FechaAprobacion *string    `json:"fechaAprobacion"`
	Estado          string     `json:"estado"`
}

type encargado struct {
	CI gateway.FlexString `json:"ci"`
}

func (r record) toDonation() *Donation {
	d := &Donation{
		ID:          r.IDDonacion,
		Code:        r.Codigo,
		Image:       r.Imagen,
		DeliveredAt: parseTime(r.FechaEntrega),
		ApprovedAt:  parseTime(r.FechaAprobacion),
		Status:      Status(r.Estado),
	}
	if r.Encargado != nil {
		d.Responsible = string(r.Encargado.CI)
	}
	if d.Image != nil && *d.Image == "" {
		d.Image = nil
	}
	return d
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads the backend's date formats. Empty values are nil; a value
// in an unknown format still yields a non-nil zero time so that presence,
// which is what marks a donation delivered, survives.
func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return &time.Time{}
}
