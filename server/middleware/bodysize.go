package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit returns middleware that caps every request body at maxBytes.
// Reads past the cap fail with *http.MaxBytesError.
func BodySizeLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GinBodySizeLimit returns a Gin middleware for body size limiting.
func GinBodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return GinWrap(BodySizeLimit(maxBytes))
}
