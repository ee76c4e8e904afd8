package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"donation-console/internal/session"
	appErrors "donation-console/pkg/errors"
	"donation-console/pkg/utils"
)

const (
	SessionKey = "session"
	SubjectKey = "ci"
)

// SessionStore resolves bearer tokens issued at login.
type SessionStore interface {
	Get(token string) (*session.Session, error)
}

func AuthMiddleware(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		sess, err := sessions.Get(strings.TrimSpace(parts[1]))
		if err != nil {
			message := "Sesión no válida"
			if errors.Is(err, appErrors.ErrTokenExpired) {
				message = "Sesión expirada"
			}
			utils.ErrorResponse(c, http.StatusUnauthorized, message)
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Set(SubjectKey, sess.Subject)

		c.Next()
	}
}

// AdminOnly rejects sessions without the administrator role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			utils.ErrorResponse(c, http.StatusForbidden, "Session not found in context")
			c.Abort()
			return
		}
		if !sess.IsAdmin {
			utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession returns the session AuthMiddleware stored, or nil.
func GetSession(c *gin.Context) *session.Session {
	if v, exists := c.Get(SessionKey); exists {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return nil
}
