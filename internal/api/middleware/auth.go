package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Cheertaboi/mess-coupon-service/internal/auth"
)

type contextKey string

const claimsKey = contextKey("claims")

// TokenParser is satisfied by auth.Issuer.
type TokenParser interface {
	Parse(token string) (auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's claims in the request context.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == "" || token == header || strings.TrimSpace(token) == "" {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := parser.Parse(strings.TrimSpace(token))
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !claims.IsAdmin {
			deny(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(auth.Claims)
	return c, ok
}

func deny(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
