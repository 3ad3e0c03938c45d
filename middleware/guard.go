package middleware

import (
	"context"
	"net/http"
	"strings"

	superjwt "github.com/MrEthical07/superjwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (superjwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(superjwt.Claims)
	return claims, ok
}

// Guard rejects requests without a valid bearer token with 401.
func Guard(authority *superjwt.Authority, secret []byte) func(http.Handler) http.Handler {
	return guard(authority, secret, nil)
}

func guard(authority *superjwt.Authority, secret []byte, admit func(superjwt.Claims) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authority == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := authority.Verify(token, secret)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if admit != nil && !admit(claims) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
