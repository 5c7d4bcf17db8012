package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/askdb/askdb/internal/observability"
)

const (
	FunctionKeyHeader = "x-functions-key"
	FunctionKeyParam  = "code"
)

type contextKey string

const identityKey contextKey = "auth_identity"

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Middleware rejects requests that carry no valid function key with a plain
// text 401.
func Middleware(logger *slog.Logger, validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractFunctionKey(r)
			if key == "" {
				writeUnauthorized(w)
				return
			}

			identity, ok := validator.Validate(r.Context(), key)
			if !ok {
				observability.RequestLogger(r.Context(), logger).WarnContext(r.Context(), "authentication failed",
					slog.String("path", r.URL.Path),
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func extractFunctionKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(FunctionKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(r.URL.Query().Get(FunctionKeyParam))
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(http.StatusText(http.StatusUnauthorized)))
}
