package donation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

func newTestBackend(t *testing.T, h http.HandlerFunc) *HTTPBackend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPBackend(gateway.NewClient(srv.URL+"/api", gateway.Options{Timeout: 2 * time.Second}))
}

func TestHTTPBackendList(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/donaciones", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"idDonacion":7,"codigo":"DON-007","encargado":{"ci":1234567},"imagen":"","fechaEntrega":null,"fechaAprobacion":"2024-10-01T08:00:00","estado":"En camino"},
			{"idDonacion":9,"codigo":"DON-009","encargado":{"ci":"7654321-1B"},"imagen":"/img/9.jpg","fechaEntrega":"2024-10-03 10:30:00","estado":"Entregado"},
			{"idDonacion":11,"codigo":"DON-011","encargado":null,"fechaEntrega":"03/10/2024"}
		]`))
	})

	items, err := backend.List(context.Background(), &session.Session{Token: "t"})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, int64(7), items[0].ID)
	assert.Equal(t, "1234567", items[0].Responsible)
	assert.Nil(t, items[0].Image)
	assert.Nil(t, items[0].DeliveredAt)
	require.NotNil(t, items[0].ApprovedAt)
	assert.Equal(t, 2024, items[0].ApprovedAt.Year())
	assert.True(t, items[0].CanUpdate())

	assert.Equal(t, "7654321-1B", items[1].Responsible)
	require.NotNil(t, items[1].DeliveredAt)
	assert.Equal(t, 10, items[1].DeliveredAt.Hour())
	assert.False(t, items[1].CanUpdate())

	assert.Empty(t, items[2].Responsible)
	require.NotNil(t, items[2].DeliveredAt, "unknown date formats still mark the donation delivered")
	assert.False(t, items[2].CanUpdate())
}

func TestHTTPBackendUpdateSendsCombinedBody(t *testing.T) {
	var got map[string]interface{}
	calls := 0
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/donaciones/actualizar/7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"idDonacion":7,"imagen":"/uploads/7.png","fechaEntrega":"2024-11-02T15:04:05Z","estado":"Entregado"}`))
	})

	img := "data:image/png;base64,AAAA"
	res, err := backend.Update(context.Background(), &session.Session{Token: "t"}, 7, UpdateRequest{
		CIUsuario: "1234567",
		Estado:    StatusEntregado,
		Imagen:    &img,
		Latitud:   -17.78,
		Longitud:  -63.18,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "1234567", got["ciUsuario"])
	assert.Equal(t, "Entregado", got["estado"])
	assert.Equal(t, img, got["imagen"])
	assert.Equal(t, -17.78, got["latitud"])
	assert.Equal(t, -63.18, got["longitud"])

	require.NotNil(t, res.Image)
	assert.Equal(t, "/uploads/7.png", *res.Image)
	require.NotNil(t, res.DeliveredAt)
	assert.Equal(t, StatusEntregado, res.Status)
}

func TestHTTPBackendUpdateIsNotRetried(t *testing.T) {
	calls := 0
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := backend.Update(context.Background(), &session.Session{Token: "t"}, 7, UpdateRequest{Estado: StatusEnCamino})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHTTPBackendUpdateNullImageSerialized(t *testing.T) {
	var raw map[string]json.RawMessage
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := backend.Update(context.Background(), &session.Session{Token: "t"}, 5, UpdateRequest{Estado: StatusEnCamino})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw["imagen"]))
}

func TestFlexString(t *testing.T) {
	var e encargado
	require.NoError(t, json.Unmarshal([]byte(`{"ci":8000001}`), &e))
	assert.Equal(t, gateway.FlexString("8000001"), e.CI)
	require.NoError(t, json.Unmarshal([]byte(`{"ci":"800-A"}`), &e))
	assert.Equal(t, gateway.FlexString("800-A"), e.CI)
	require.NoError(t, json.Unmarshal([]byte(`{"ci":null}`), &e))
	assert.Equal(t, gateway.FlexString(""), e.CI)
}
