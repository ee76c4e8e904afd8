package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-console/internal/logger"
)

// LoggingMiddleware writes one line per console request. The acting CI is
// included once AuthMiddleware has resolved the session.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		log := logger.WithRequestID(GetRequestID(c))
		log.Debug("console request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
		)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Int("status_code", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if ci := c.GetString(SubjectKey); ci != "" {
			fields = append(fields, zap.String("ci", ci))
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			fields = append(fields, zap.String("error", msg))
		}

		switch {
		case status >= 500:
			log.Error("console request failed", fields...)
		case status >= 400:
			log.Warn("console request rejected", fields...)
		default:
			log.Info("console request served", fields...)
		}
	}
}
