package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	// ErrUnauthorized means no usable bearer credential was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means a well-formed credential did not match the key.
	ErrForbidden = errors.New("forbidden")
)

// Verify checks an Authorization header value against apiKey.
// An empty apiKey disables auth and accepts anything, including garbage.
func Verify(header, apiKey string) error {
	if apiKey == "" {
		return nil
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
		return ErrForbidden
	}
	return nil
}

// BearerMiddleware rejects requests whose Authorization header does not carry apiKey.
// 401 for a missing or malformed header, 403 for the wrong token.
func BearerMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		switch err := Verify(header, apiKey); {
		case err == nil:
			c.Next()
		case errors.Is(err, ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Invalid API key"})
		default:
			c.Header("WWW-Authenticate", "Bearer")
			detail := "Missing Authorization header"
			if strings.TrimSpace(header) != "" {
				detail = "Invalid auth scheme (expected Bearer)"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
		}
	}
}
