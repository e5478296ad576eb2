package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/famledger/internal/domain"
)

func TestRequireIdempotencyKey_SkipsReads(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/x/balance", nil)
	rr := httptest.NewRecorder()

	called := false
	RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	if !called {
		t.Fatalf("expected next handler to be called")
	}
}

func TestRequireIdempotencyKey_RejectsMissingKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()

	RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a key")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestRequireIdempotencyKey_RejectsMalformedKey(t *testing.T) {
	for _, key := range []string{"key-123", "00000000-0000-0000-0000-000000000000"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
		req.Header.Set(IdempotencyKeyHeader, key)
		rr := httptest.NewRecorder()

		RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("handler must not run for key %q", key)
		})).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("key %q: expected status 400, got %d", key, rr.Code)
		}
	}
}

func TestRequireIdempotencyKey_AttachesRequestID(t *testing.T) {
	want := domain.NewID[domain.RequestKind]()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, want.String())
	rr := httptest.NewRecorder()

	var got domain.RequestID
	var ok bool
	RequireIdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = RequestIDFromContext(r.Context())
	})).ServeHTTP(rr, req)

	if !ok || got != want {
		t.Fatalf("expected request id %s in context, got %s (ok=%v)", want, got, ok)
	}
}
