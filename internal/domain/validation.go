package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNameLength        = 255
	MaxTags              = 20
	MaxTagLength         = 50
	MaxNotesLength       = 4096
	MaxSplits            = 100
	MaxBulkImportRows    = 5000
	MaxBatchTransactions = 500
	MaxTransactionAmount = "1000000000000" // 1 trillion
)

// ValidateName validates a transaction name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}

	return nil
}

// ValidateTags validates tag count and length.
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("%w: at most %d tags allowed", ErrValidation, MaxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: empty tag", ErrValidation)
		}
		if len(tag) > MaxTagLength {
			return fmt.Errorf("%w: tag %q exceeds %d characters", ErrValidation, tag, MaxTagLength)
		}
	}
	return nil
}

// ValidateNotes validates free-form notes.
func ValidateNotes(notes *string) error {
	if notes != nil && len(*notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, MaxNotesLength)
	}
	return nil
}

// ValidateAmount requires a positive amount below the global ceiling.
func ValidateAmount(amount Money) error {
	if !amount.IsValid() {
		return fmt.Errorf("%w: amount has no currency", ErrInvalidCurrency)
	}

	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxTransactionAmount)
	if amount.Amount().GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransactionAmount)
	}

	return nil
}

// ValidateDate rejects zero dates.
func ValidateDate(date time.Time) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	return nil
}

// ValidateDateRange requires from <= to.
func ValidateDateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidDateRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return nil
}

// ValidateRequestID requires a caller supplied request id.
func ValidateRequestID(id RequestID) error {
	if id.IsZero() {
		return fmt.Errorf("%w: request id is required", ErrInvalidRequestID)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
