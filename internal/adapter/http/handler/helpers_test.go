package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/famledger/internal/adapter/http/dto"
	"github.com/iho/famledger/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"transaction not found", fmt.Errorf("load: %w", domain.ErrTransactionNotFound), http.StatusNotFound},
		{"already split", domain.ErrAlreadySplit, http.StatusConflict},
		{"lock contention", domain.ErrConcurrencyConflict, http.StatusConflict},
		{"overdraft", domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"currency mismatch", domain.ErrCurrencyMismatch, http.StatusBadRequest},
		{"split sum", domain.ErrSplitSumMismatch, http.StatusBadRequest},
		{"balance drift", domain.ErrBalanceDrift, http.StatusInternalServerError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestParseDateQuery(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	req := httptest.NewRequest(http.MethodGet, "/x?from=2026-02-03", nil)
	got, err := parseDateQuery(req, "from", fallback)
	if err != nil || got.Month() != time.February || got.Day() != 3 {
		t.Fatalf("unexpected parse result %s, %v", got, err)
	}

	got, err = parseDateQuery(req, "to", fallback)
	if err != nil || !got.Equal(fallback) {
		t.Fatalf("expected fallback, got %s, %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/x?from=tomorrow", nil)
	if _, err := parseDateQuery(req, "from", fallback); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWriteDomainErrorIncludesCode(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDomainError(rr, "failed", domain.ErrAlreadySplit)

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if rr.Code != http.StatusConflict || resp.Code != domain.CodeAlreadySplit {
		t.Fatalf("unexpected response %d %+v", rr.Code, resp)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "bad request", "detail")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "bad request" {
		t.Fatalf("expected error message to propagate, got %+v", resp)
	}
}
