package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/holistic/reporting-engine/auth"
)

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// =============================================================================
// TOKEN AUTHENTICATION
// =============================================================================

type principalKey struct{}

type principal struct {
	user  *auth.User
	token *auth.Token
}

// TokenResolver resolves the account behind a token key.
type TokenResolver interface {
	Resolve(ctx context.Context, key string) (*auth.User, *auth.Token, error)
}

// UserFromContext returns the authenticated user, if present.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p.user, ok
}

// TokenFromContext returns the token the request authenticated with.
func TokenFromContext(ctx context.Context) (*auth.Token, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p.token, ok
}

// TokenAuth enforces "Authorization: Token <key>" authentication.
func TokenAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := tokenKey(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Token")
				writeError(w, http.StatusUnauthorized, CodeUnauthorized,
					"Authentication credentials were not provided.")
				return
			}

			user, token, err := resolver.Resolve(r.Context(), key)
			if err != nil || user == nil {
				w.Header().Set("WWW-Authenticate", "Token")
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token.")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal{user: user, token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenKey(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}
