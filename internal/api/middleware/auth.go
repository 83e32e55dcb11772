package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vocalless/vocalless/internal/api/response"
)

const keyPrefixLen = 8

// Auth validates the Bearer token against a single bcrypt-hashed API key.
// When no hash is configured the server runs open and requests pass through.
type Auth struct {
	keyHash string
}

// NewAuth creates a new Auth middleware. keyHash is a bcrypt hash of the
// API key; an empty hash disables authentication.
func NewAuth(keyHash string) *Auth {
	return &Auth{keyHash: keyHash}
}

// Authenticate validates the Bearer token and sets the key prefix in the
// request context for rate limiting.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.keyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(a.keyHash), []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		ctx := setKeyPrefix(r.Context(), rawKey[:keyPrefixLen])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
