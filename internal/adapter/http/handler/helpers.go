package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/famledger/internal/adapter/http/dto"
	"github.com/iho/famledger/internal/adapter/http/middleware"
	"github.com/iho/famledger/internal/domain"
)

const maxBodyBytes = 4 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError reports err with its taxonomy code and matching status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, mapDomainError(err), dto.ErrorResponse{
		Error:   message,
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.ErrorCode(err) {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadySplit, domain.CodeConcurrencyConflict:
		return http.StatusConflict
	case domain.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case domain.CodeValidation, domain.CodeInvalidAmount, domain.CodeInvalidCurrency:
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}

func requestID(r *http.Request) (domain.RequestID, error) {
	id, ok := middleware.RequestIDFromContext(r.Context())
	if !ok {
		return domain.RequestID{}, fmt.Errorf("%w: missing %s header", domain.ErrInvalidRequestID, middleware.IdempotencyKeyHeader)
	}
	return id, nil
}

func pathID[K domain.Kind](r *http.Request, param string) (domain.ID[K], error) {
	return domain.ParseID[K](chi.URLParam(r, param))
}

// parseDateQuery parses a YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, key string, defaultValue time.Time) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", domain.ErrValidation, key)
	}
	return t, nil
}
