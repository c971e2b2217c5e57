package middleware

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/utils"
)

// AuthMiddleware checks the shared-secret API key header on protected
// routes. When no key is configured the check is disabled, which is the
// development default.
type AuthMiddleware struct {
	apiKey string
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(apiKey string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		apiKey: apiKey,
		logger: logger,
	}
}

// RequireAPIKey rejects requests whose API key header is missing or wrong.
func (m *AuthMiddleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(APIKeyHeader)
		if presented == "" {
			m.logger.Warn("missing API key",
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "API key header required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(m.apiKey)) != 1 {
			m.logger.Warn("invalid API key",
				zap.String("path", r.URL.Path))
			_ = utils.WriteForbidden(w, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), presented)))
	})
}
