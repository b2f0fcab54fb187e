// Package middleware holds the HTTP middleware guarding staff-only routes.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tiffindesk/api/internal/auth"
)

// Verifier checks a token of the given kind. Satisfied by *auth.Signer.
type Verifier interface {
	Verify(tokenStr string, kind auth.Kind) (*auth.Claims, error)
}

type contextKey struct{}

// Authenticate requires a valid access token and stores its claims on the
// request context. Browsers cannot set headers on a WebSocket handshake, so
// upgrade requests may pass the token as ?token= instead.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, problem := tokenFromRequest(r)
			if problem != "" {
				unauthorized(w, problem)
				return
			}
			claims, err := v.Verify(tokenStr, auth.KindAccess)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// tokenFromRequest returns the token, or a message saying why there is none.
func tokenFromRequest(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, ""
			}
		}
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization format"
	}
	return strings.TrimSpace(token), ""
}

// RequireRole lets through authenticated requests whose role is one of roles.
// It must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			switch {
			case claims == nil:
				unauthorized(w, "not authenticated")
			case !allowed[claims.Role]:
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext returns the claims Authenticate stored, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKey{}).(*auth.Claims)
	return claims
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tiffindesk"`)
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
