// Package auth provides the outer HTTP middleware: API key checks, per-key
// rate limiting and CORS. Multi-tenant authorization is out of scope; the
// caller's user id is an opaque header value.
package auth

import (
	"context"
	"net"
	"net/http"
	"strings"

	"memoryecho/pkg/logger"
	"memoryecho/pkg/utils"
)

// DefaultUserID is assumed when a caller sends no identity header. It
// matches the single-user default of the original client.
const DefaultUserID = "current_user"

type ctxUserKey struct{}

// SecConfig carries the security knobs for the middleware chain.
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	// APIKeys, when non-empty, gates every request via X-API-Key.
	APIKeys map[string]struct{}
}

// Middleware wraps next with CORS, rate limiting, API key enforcement and
// identity extraction, in that order.
func Middleware(cfg SecConfig, next http.Handler) http.Handler {
	limiters := newLimiterPool(cfg)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if allowed := corsOrigin(cfg.AllowedOrigins, origin); allowed != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-User-ID")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		key := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if len(cfg.APIKeys) > 0 {
			if _, ok := cfg.APIKeys[key]; !ok {
				logger.Warn("api_key_rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}

		limKey := key
		if limKey == "" {
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				limKey = host
			} else {
				limKey = r.RemoteAddr
			}
		}
		if !limiters.Allow(limKey) {
			utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			userID = DefaultUserID
		}
		ctx := context.WithValue(r.Context(), ctxUserKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the caller's user id; DefaultUserID when the
// middleware did not run.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultUserID
}

func corsOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" {
			return "*"
		}
		if strings.EqualFold(a, origin) {
			return origin
		}
	}
	return ""
}
