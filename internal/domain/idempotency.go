package domain

import "time"

// DefaultIdempotencyTTL is how long a processed request is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyRecord remembers the outcome of a processed request.
type IdempotencyRecord struct {
	RequestID     RequestID `json:"request_id"`
	Operation     string    `json:"operation"`
	ResultPayload string    `json:"result_payload"`
	StatusCode    *int      `json:"status_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// NewIdempotencyRecord builds a record expiring ttl after now. A zero ttl
// produces a record that is already expired.
func NewIdempotencyRecord(requestID RequestID, operation, payload string, statusCode *int, ttl time.Duration, now time.Time) *IdempotencyRecord {
	if ttl < 0 {
		ttl = 0
	}
	return &IdempotencyRecord{
		RequestID:     requestID,
		Operation:     operation,
		ResultPayload: payload,
		StatusCode:    statusCode,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// IsExpired reports whether the record must be treated as absent at now.
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TTL returns the remaining lifetime at now, never negative.
func (r *IdempotencyRecord) TTL(now time.Time) time.Duration {
	if d := r.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
