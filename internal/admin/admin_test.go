package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

func TestServiceCalls(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/usuarios/noAdmin" {
			_, _ = w.Write([]byte(`[{"idUsuario":4,"ci":7788990,"nombre":"Ana","apellido":"Rojas","correoElectronico":"ana@example.org","telefono":70011223,"active":true}]`))
			return
		}
		if r.URL.Path == "/api/usuarios/active/9" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Usuario no encontrado"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewService(gateway.NewClient(srv.URL+"/api", gateway.Options{Timeout: time.Second}), nil)
	sess := &session.Session{Token: "t", Subject: "1234567", IsAdmin: true}

	users, err := s.Users(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, gateway.FlexString("7788990"), users[0].CI)
	assert.Equal(t, "Ana Rojas", users[0].FullName())

	require.NoError(t, s.ToggleActive(context.Background(), sess, 4))
	require.NoError(t, s.Promote(context.Background(), sess, 4))

	err = s.ToggleActive(context.Background(), sess, 9)
	assert.Equal(t, "Usuario no encontrado", gateway.UserMessage(err))

	assert.Equal(t, []string{
		"GET /api/usuarios/noAdmin",
		"POST /api/usuarios/active/4",
		"POST /api/usuarios/admin/4",
		"POST /api/usuarios/active/9",
	}, paths)
}

func TestFilter(t *testing.T) {
	users := []User{
		{ID: 1, Name: "Luis", Surname: "Paz", CI: "5551234", Email: "luis@example.org", Active: false},
		{ID: 2, Name: "Ana", Surname: "Rojas", CI: "7788990", Phone: "70011223", Active: true},
		{ID: 3, Name: "Eva", Surname: "Soto", Email: "EVA@Example.org", Active: true, Admin: true},
	}

	all := Filter(users, "")
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 3, 1}, ids(all))

	assert.Equal(t, []int64{3}, ids(Filter(users, "eva@example")))
	assert.Equal(t, []int64{2}, ids(Filter(users, "7001")))
	assert.Equal(t, []int64{1}, ids(Filter(users, "LUIS PAZ")))
	assert.Equal(t, []int64{2}, ids(Filter(users, "778")))
	assert.Empty(t, Filter(users, "nadie"))

	assert.Equal(t, []int64{1, 2}, ids(Eligible(users)))
}

func ids(users []User) []int64 {
	out := make([]int64, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
