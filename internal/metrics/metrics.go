// Package metrics serves the dashboard aggregates, the donor gallery and the
// PDF distribution report.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

// Metrics is the backend's aggregate as served by GET /metricas.
type Metrics struct {
	TotalRequests      int64            `json:"totalSolicitudesRecibidas"`
	DeliveredDonations int64            `json:"donacionesEntregadas"`
	PendingDonations   int64            `json:"donacionesPendientes"`
	UnansweredRequests int64            `json:"solicitudesSinResponder"`
	ApprovedRequests   int64            `json:"solicitudesAprobadas"`
	RejectedRequests   int64            `json:"solicitudesRechazadas"`
	AvgResponseDays    float64          `json:"tiempoPromedioRespuesta"`
	AvgDeliveryDays    float64          `json:"tiempoPromedioEntrega"`
	TopProducts        map[string]int64 `json:"topProductosMasSolicitados"`
	RequestsByMonth    map[string]int64 `json:"solicitudesPorMes"`
	RequestsByProvince map[string]int64 `json:"solicitudesPorProvincia"`
}

// FormatDays renders an average duration the way the dashboard shows it.
func FormatDays(v float64) string {
	if v < 1 {
		return "<1 día"
	}
	return fmt.Sprintf("%.1f días", v)
}

// Count is one labelled value of a breakdown.
type Count struct {
	Label string `json:"etiqueta"`
	Value int64  `json:"valor"`
}

var monthOrder = map[string]int{
	"enero": 1, "febrero": 2, "marzo": 3, "abril": 4, "mayo": 5, "junio": 6,
	"julio": 7, "agosto": 8, "septiembre": 9, "octubre": 10, "noviembre": 11, "diciembre": 12,
}

// SortedByValue orders a breakdown largest first, ties by label.
func SortedByValue(m map[string]int64) []Count {
	out := toCounts(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// SortedByMonth orders Spanish month names chronologically; other labels
// follow alphabetically.
func SortedByMonth(m map[string]int64) []Count {
	out := toCounts(m)
	sort.Slice(out, func(i, j int) bool {
		a, aok := monthOrder[strings.ToLower(out[i].Label)]
		b, bok := monthOrder[strings.ToLower(out[j].Label)]
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return out[i].Label < out[j].Label
		}
	})
	return out
}

func toCounts(m map[string]int64) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, Value: v})
	}
	return out
}

// Percent returns part/total as a percentage, 0 when total is 0.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

type Donor struct {
	Names   string `json:"nombres"`
	Surname string `json:"apellido_paterno"`
}

// DonationDonors is one delivered donation with the people who funded it.
type DonationDonors struct {
	ID          int64   `json:"idDonacion"`
	Code        string  `json:"codigo"`
	Image       *string `json:"imagen"`
	DeliveredAt *string `json:"fechaEntrega"`
	Donors      []Donor `json:"donantes"`
}

// Gratitude is the thank-you line shown on a gallery card.
func (d DonationDonors) Gratitude() string {
	names := make([]string, 0, len(d.Donors))
	for _, p := range d.Donors {
		names = append(names, strings.TrimSpace(p.Names+" "+p.Surname))
	}

	switch n := len(names); {
	case n == 0:
		return "Esperando donantes solidarios"
	case n <= 3:
		return "Gracias a " + strings.Join(names, ", ") + " por su generoso apoyo"
	default:
		return fmt.Sprintf("Gracias a %s y %d personas más por su generoso apoyo", strings.Join(names[:2], ", "), n-2)
	}
}

// Dashboard caches the aggregate until a new-metric notification arrives.
type Dashboard struct {
	client *gateway.Client

	mu        sync.RWMutex
	current   *Metrics
	fetchedAt time.Time
	stale     bool
	gen       uint64
}

func NewDashboard(client *gateway.Client) *Dashboard {
	return &Dashboard{client: client}
}

// Metrics returns the cached aggregate, fetching it when absent or forced.
func (d *Dashboard) Metrics(ctx context.Context, sess *session.Session, force bool) (*Metrics, error) {
	d.mu.RLock()
	cur, fresh, gen := d.current, !d.stale, d.gen
	d.mu.RUnlock()
	if cur != nil && fresh && !force {
		return cur, nil
	}

	var m Metrics
	if err := d.client.Call(ctx, sess, http.MethodGet, "/metricas", nil, &m); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.current = &m
	d.fetchedAt = time.Now()
	d.stale = d.gen != gen
	d.mu.Unlock()
	return &m, nil
}

// Invalidate drops the cached aggregate.
func (d *Dashboard) Invalidate() {
	d.mu.Lock()
	d.current = nil
	d.gen++
	d.mu.Unlock()
}

// FetchedAt reports when the cached aggregate was loaded; zero if none.
func (d *Dashboard) FetchedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return time.Time{}
	}
	return d.fetchedAt
}

// Donors fetches the donor gallery. It is not cached.
func (d *Dashboard) Donors(ctx context.Context, sess *session.Session) ([]DonationDonors, error) {
	var out []DonationDonors
	if err := d.client.Call(ctx, sess, http.MethodGet, "/donaciones/donantes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
