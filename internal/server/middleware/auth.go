package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/prono/internal/auth"
	"github.com/gosuda/prono/internal/domain"
)

// Auth requires a valid bearer access token.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				ctx, ok := authenticateJWT(r.Context(), tok, jwtSecret)
				if ok {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

// WSAuth authenticates live-channel upgrades from the "token" query
// parameter. Browsers cannot set headers on the handshake, so the token
// travels in the URL. A missing or invalid token is not rejected: the
// connection proceeds as the anonymous user.
func WSAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if tok := r.URL.Query().Get("token"); tok != "" {
				authed, ok := authenticateJWT(ctx, tok, jwtSecret)
				if ok {
					ctx = authed
				} else {
					log.Debug().Str("path", r.URL.Path).Msg("ws: invalid token, continuing as anonymous")
				}
			}
			if _, ok := UserIDFromContext(ctx); !ok {
				ctx = context.WithValue(ctx, ContextKeyUsername, domain.AnonymousUsername)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}

func authenticateJWT(ctx context.Context, tokenStr, secret string) (context.Context, bool) {
	claims, err := auth.ValidateAccessToken(secret, tokenStr)
	if err != nil || claims.UserID == 0 {
		return ctx, false
	}

	return WithUser(ctx, claims.UserID, claims.Username), true
}
