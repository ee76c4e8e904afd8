// Package respond renders service errors into the console's JSON envelope.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-console/internal/gateway"
	"donation-console/internal/logger"
	appErrors "donation-console/pkg/errors"
	"donation-console/pkg/utils"
)

type mapping struct {
	err     error
	status  int
	message string
}

var known = []mapping{
	{appErrors.ErrInvalidCredentials, http.StatusUnauthorized, "CI o contraseña incorrectos"},
	{appErrors.ErrInvalidToken, http.StatusUnauthorized, "Sesión no válida"},
	{appErrors.ErrTokenExpired, http.StatusUnauthorized, "Sesión expirada"},
	{appErrors.ErrSessionNotFound, http.StatusUnauthorized, "Sesión no válida"},
	{appErrors.ErrUnauthorized, http.StatusUnauthorized, "Sesión no válida"},
	{appErrors.ErrInsufficientPermissions, http.StatusForbidden, "Permisos insuficientes"},
	{appErrors.ErrPasswordMismatch, http.StatusUnprocessableEntity, "Las contraseñas no coinciden"},
	{appErrors.ErrDonationNotFound, http.StatusNotFound, "Donación no encontrada"},
	{appErrors.ErrDonationNotUpdatable, http.StatusConflict, "La donación ya no puede actualizarse"},
	{appErrors.ErrDraftNotFound, http.StatusNotFound, "Actualización no encontrada"},
	{appErrors.ErrDraftClosed, http.StatusGone, "La actualización fue cancelada"},
	{appErrors.ErrSubmitInFlight, http.StatusConflict, "Ya se está enviando esta actualización"},
	{appErrors.ErrInvalidTransition, http.StatusUnprocessableEntity, "Cambio de estado no permitido"},
	{appErrors.ErrSolicitudNotFound, http.StatusNotFound, "Solicitud no encontrada"},
}

// Error writes err as an error envelope. Field errors carry their field so
// the browser can show the message next to the right input; backend
// rejections keep the backend's own message.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	if fe, ok := appErrors.AsFieldError(err); ok {
		utils.FieldErrorResponse(c, http.StatusUnprocessableEntity, fe.Field, fe.Message)
		return
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "VALIDATION_ERROR":
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		case "WEAK_PASSWORD":
			utils.FieldErrorResponse(c, http.StatusUnprocessableEntity, "contrasena", appErr.Message)
			return
		}
	}

	if errors.Is(err, appErrors.ErrInvalidInput) {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	for _, m := range known {
		if errors.Is(err, m.err) {
			utils.ErrorResponse(c, m.status, m.message)
			return
		}
	}

	status := gateway.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	utils.ErrorResponse(c, status, gateway.UserMessage(err))
}

// BadRequest rejects a body or parameter that could not be decoded.
func BadRequest(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusBadRequest, message)
}
