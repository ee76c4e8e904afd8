package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-console/pkg/utils"
)

// multipartOverhead covers form boundaries and the other draft fields sent
// alongside an evidence image.
const multipartOverhead = 64 << 10

// RequestSizeLimitMiddleware caps request bodies at the largest evidence
// image the console accepts plus multipart overhead.
func RequestSizeLimitMiddleware(maxImageBytes int64) gin.HandlerFunc {
	maxSize := maxImageBytes + multipartOverhead

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "La imagen supera el tamaño permitido")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
