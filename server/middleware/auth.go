package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/auth"
	apperrors "github.com/fernandomesquita/stenopro/errors"
)

// ContextSubject is the gin context key holding the verified token subject.
const ContextSubject = "subject"

// TokenVerifier verifies a bearer token.
type TokenVerifier interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthConfig configures the bearer token middleware.
type AuthConfig struct {
	Verifier TokenVerifier
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
	// QueryParam, when set, is accepted in place of the Authorization header
	// on GET requests. Browsers cannot set headers on an EventSource.
	QueryParam string
}

// Auth returns a Gin middleware that requires a valid Bearer token. The
// verified claims are stored in the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token, err := bearerToken(c, cfg.QueryParam)
		if err != nil {
			abort(c, err)
			return
		}
		claims, perr := cfg.Verifier.Parse(token)
		if perr != nil {
			if strings.Contains(perr.Error(), "expired") {
				abort(c, apperrors.TokenExpired())
				return
			}
			abort(c, apperrors.InvalidToken())
			return
		}
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context, queryParam string) (string, *apperrors.AppError) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if queryParam != "" && c.Request.Method == "GET" {
			if t := c.Query(queryParam); t != "" {
				return t, nil
			}
		}
		return "", apperrors.Unauthorized("Authorization header required.")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.Unauthorized("Invalid authorization header format.")
	}
	return parts[1], nil
}
