package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

func TestListCachesUntilInvalidated(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/seguimientodonaciones/completos":
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`[{"idSeguimiento":1,"idDonacion":7,"estado":"En camino","latitud":-17.78,"longitud":-63.18,
				"historial":[{"latitud":-17.70,"longitud":-63.10}]},{"idSeguimiento":2,"idDonacion":8,"origen":"Almacén central"}]`))
		case "/api/seguimientodonaciones/contar-entregadas":
			_, _ = w.Write([]byte(`12`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewService(gateway.NewClient(srv.URL+"/api", gateway.Options{Timeout: time.Second}))
	sess := &session.Session{Token: "t"}

	records, err := s.List(context.Background(), sess, false)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, unknownOrigin, records[0].Origin)
	assert.Equal(t, "Almacén central", records[1].Origin)
	assert.NotNil(t, records[1].History)

	route := records[0].Route()
	require.Len(t, route, 2)
	assert.Equal(t, Point{Latitude: -17.78, Longitude: -63.18}, route[1])

	_, err = s.List(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	s.Invalidate()
	_, err = s.List(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	n, err := s.DeliveredCount(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestListInvalidatedWhileFetching(t *testing.T) {
	var calls int32
	var s *Service
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			s.Invalidate()
		}
		_, _ = w.Write([]byte(`[{"idSeguimiento":1,"idDonacion":7}]`))
	}))
	defer srv.Close()

	s = NewService(gateway.NewClient(srv.URL, gateway.Options{Timeout: time.Second}))
	sess := &session.Session{Token: "t"}

	records, err := s.List(context.Background(), sess, false)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = s.List(context.Background(), sess, false)
	require.NoError(t, err)
	_, err = s.List(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
