package middleware

import (
	"context"
	"net/http"

	"github.com/iho/famledger/internal/domain"
)

// IdempotencyKeyHeader carries the caller's request id. Replays of the same
// key return the stored result of the first execution.
const IdempotencyKeyHeader = "Idempotency-Key"

type requestIDKey struct{}

// RequireIdempotencyKey rejects mutating requests without a valid key and
// attaches the parsed request id to the context.
func RequireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			writeError(w, http.StatusBadRequest, "missing "+IdempotencyKeyHeader+" header", domain.CodeValidation)
			return
		}

		requestID, err := domain.ParseRequestID(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), domain.CodeValidation)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// WithRequestID attaches a command request id to ctx.
func WithRequestID(ctx context.Context, id domain.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by RequireIdempotencyKey.
func RequestIDFromContext(ctx context.Context) (domain.RequestID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(domain.RequestID)
	return id, ok
}
