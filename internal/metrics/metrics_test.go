package metrics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

const metricsJSON = `{
	"totalSolicitudesRecibidas": 40,
	"donacionesEntregadas": 18,
	"donacionesPendientes": 6,
	"solicitudesSinResponder": 10,
	"solicitudesAprobadas": 24,
	"solicitudesRechazadas": 6,
	"tiempoPromedioRespuesta": 0.4,
	"tiempoPromedioEntrega": 2.25,
	"topProductosMasSolicitados": {"Agua": 30, "Arroz": 20, "Frazadas": 10},
	"solicitudesPorMes": {"Marzo": 5, "Enero": 20, "Febrero": 15},
	"solicitudesPorProvincia": {"Chiquitos": 25, "Velasco": 15}
}`

func sampleMetrics(t *testing.T) *Metrics {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(metricsJSON))
	}))
	defer srv.Close()

	m, err := NewDashboard(gateway.NewClient(srv.URL, gateway.Options{Timeout: time.Second})).
		Metrics(context.Background(), nil, false)
	require.NoError(t, err)
	return m
}

func TestDashboardCachesUntilInvalidated(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/metricas":
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(metricsJSON))
		case "/api/donaciones/donantes":
			_, _ = w.Write([]byte(`[{"idDonacion":3,"codigo":"DON-003","donantes":[{"nombres":"Ana","apellido_paterno":"Rojas"}]}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDashboard(gateway.NewClient(srv.URL+"/api", gateway.Options{Timeout: time.Second}))
	sess := &session.Session{Token: "t"}
	assert.True(t, d.FetchedAt().IsZero())

	m, err := d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int64(40), m.TotalRequests)
	assert.Equal(t, int64(30), m.TopProducts["Agua"])
	assert.False(t, d.FetchedAt().IsZero())

	_, err = d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	d.Invalidate()
	assert.True(t, d.FetchedAt().IsZero())
	_, err = d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	_, err = d.Metrics(context.Background(), sess, true)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	donors, err := d.Donors(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, "Gracias a Ana Rojas por su generoso apoyo", donors[0].Gratitude())
}

func TestGratitude(t *testing.T) {
	people := func(n int) []Donor {
		out := make([]Donor, n)
		names := []string{"Ana", "Luis", "Eva", "Juan", "Rosa"}
		for i := range out {
			out[i] = Donor{Names: names[i], Surname: "Paz"}
		}
		return out
	}

	assert.Equal(t, "Esperando donantes solidarios", DonationDonors{}.Gratitude())
	assert.Equal(t, "Gracias a Ana Paz, Luis Paz, Eva Paz por su generoso apoyo", DonationDonors{Donors: people(3)}.Gratitude())
	assert.Equal(t, "Gracias a Ana Paz, Luis Paz y 3 personas más por su generoso apoyo", DonationDonors{Donors: people(5)}.Gratitude())
}

func TestSortingAndFormatting(t *testing.T) {
	months := SortedByMonth(map[string]int64{"Marzo": 1, "Otro": 9, "enero": 2, "Diciembre": 3})
	labels := make([]string, len(months))
	for i, c := range months {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{"enero", "Marzo", "Diciembre", "Otro"}, labels)

	byValue := SortedByValue(map[string]int64{"b": 2, "a": 2, "c": 5})
	assert.Equal(t, "c", byValue[0].Label)
	assert.Equal(t, "a", byValue[1].Label)

	assert.Equal(t, "<1 día", FormatDays(0.4))
	assert.Equal(t, "2.2 días", FormatDays(2.24))
	assert.Equal(t, 25.0, Percent(10, 40))
	assert.Equal(t, 0.0, Percent(10, 0))
}

func TestReportWrite(t *testing.T) {
	delivered := "2024-10-03T10:00:00Z"
	report := Report{
		Metrics: sampleMetrics(t),
		Donors: []DonationDonors{
			{ID: 3, Code: "DON-003", DeliveredAt: &delivered, Donors: []Donor{{Names: "Ana", Surname: "Rojas"}}},
			{ID: 4, Code: "DON-004"},
		},
		GeneratedAt: time.Date(2024, 10, 5, 9, 30, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	doc, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 5, doc.NumPage())

	var text strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		require.NoError(t, err)
		text.WriteString(content)
	}
	out := text.String()
	assert.Contains(t, out, "Resumen General")
	assert.Contains(t, out, "Frazadas")
	assert.Contains(t, out, "Chiquitos")
	assert.Contains(t, out, "DON-003")
	assert.Contains(t, out, "05/10/2024")
}

func TestReportWithoutDonorsHasFourPages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report{Metrics: sampleMetrics(t)}.Write(&buf))

	doc, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 4, doc.NumPage())

	assert.Error(t, Report{}.Write(&buf))
}

func TestDashboardInvalidatedWhileFetching(t *testing.T) {
	var calls int32
	var d *Dashboard
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			d.Invalidate()
		}
		_, _ = w.Write([]byte(metricsJSON))
	}))
	defer srv.Close()

	d = NewDashboard(gateway.NewClient(srv.URL, gateway.Options{Timeout: time.Second}))
	sess := &session.Session{Token: "t"}

	_, err := d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	_, err = d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	_, err = d.Metrics(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
