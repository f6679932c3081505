package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey struct{}

// Middleware extracts the bearer principal and stores it in the request
// context. A presented-but-invalid token is rejected outright; requests with
// no token pass through without a principal and handlers decide whether
// authentication is required.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				p, err := v.Parse(token)
				if err != nil {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "unauthenticated",
						"message": "invalid or expired token",
					})
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext returns the request principal, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
