package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/security/audit"
	"github.com/texlink/partnerhub/internal/security/auth"
	"github.com/texlink/partnerhub/internal/security/ratelimit"
)

type ActorContextKey struct{}
type ClaimsContextKey struct{}

// publicPath reports whether the path is reachable without a token
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		path == "/api/login" || path == "/api/register"
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Browsers cannot set headers on WebSocket dials; accept
				// the token as a query parameter there.
				if strings.HasPrefix(r.URL.Path, "/ws/") && r.URL.Query().Get("token") != "" {
					authHeader = "Bearer " + r.URL.Query().Get("token")
				} else {
					http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
					return
				}
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			actor := domain.Actor{
				ID:        claims.UserID,
				CompanyID: claims.CompanyID,
				Role:      claims.Role,
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, ActorContextKey{}, actor)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			companyID := ""
			if a, ok := r.Context().Value(ActorContextKey{}).(domain.Actor); ok {
				companyID = a.CompanyID
			}

			if !limiter.Allow(companyID) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPatch ||
				r.Method == http.MethodPut || r.Method == http.MethodDelete {
				actor := GetActorFromContext(r.Context())
				auditLog.LogAction(r.Context(), actor.CompanyID, actor.ID,
					strings.ToLower(r.Method), r.URL.Path, r.PathValue("id"), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetActorFromContext returns the authenticated actor, or a zero Actor when
// the request was not authenticated.
func GetActorFromContext(ctx context.Context) domain.Actor {
	if a, ok := ctx.Value(ActorContextKey{}).(domain.Actor); ok {
		return a
	}
	return domain.Actor{}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
