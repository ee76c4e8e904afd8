package middleware

import "github.com/gin-gonic/gin"

// SecurityHeadersMiddleware sets the response headers of the console API.
// Evidence images travel as data URLs, hence img-src data:.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")
		// Geolocation is requested by the console itself.
		headers.Set("Permissions-Policy", "geolocation=(self)")
		c.Next()
	}
}
