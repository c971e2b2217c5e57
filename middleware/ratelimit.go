package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/modathread/rag-backend/utils"
)

// Admitter decides request admission per client identity.
type Admitter interface {
	Admit(identity string) bool
}

// RateLimitMiddleware guards an endpoint's entry point with the shared
// sliding-window limiter.
type RateLimitMiddleware struct {
	limiter Admitter
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter Admitter, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit rejects requests from identities over their quota with 429.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := Identity(r)
		if !m.limiter.Admit(identity) {
			m.logger.Info("request rejected by rate limiter",
				zap.String("path", r.URL.Path),
				zap.String("identity", identity))
			_ = utils.WriteTooManyRequests(w, "", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
