package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the backend refused the bearer credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNetwork covers unreachable hosts, timeouts and aborted requests.
	ErrNetwork = errors.New("network error")
)

// ServerError is a non-2xx answer from the backend. Message carries the
// backend's own text when it sent one.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// UserMessage returns the text a user should see for err: the backend's
// message verbatim for business-rule rejections, a retry hint for
// transport failures.
func UserMessage(err error) string {
	var se *ServerError
	switch {
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.Is(err, ErrUnauthorized):
		return "Su sesión expiró. Inicie sesión nuevamente."
	case errors.Is(err, ErrNetwork):
		return "Error al Actualizar. Verifique su conexión e intente nuevamente."
	default:
		return "Ocurrió un error inesperado."
	}
}

// HTTPStatus maps a gateway error to the status the console answers with.
func HTTPStatus(err error) int {
	var se *ServerError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &se):
		if se.Status >= 400 && se.Status < 500 {
			return se.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
