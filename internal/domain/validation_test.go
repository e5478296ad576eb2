package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateName(t *testing.T) {
	if err := ValidateName("Rent"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateName("   "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected blank name to fail, got %v", err)
	}
	if err := ValidateName(strings.Repeat("a", MaxNameLength+1)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected long name to fail, got %v", err)
	}
}

func TestValidateTags(t *testing.T) {
	if err := ValidateTags([]string{"food", "weekly"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTags([]string{""}); err == nil {
		t.Errorf("expected empty tag to fail")
	}
	tooMany := make([]string, MaxTags+1)
	for i := range tooMany {
		tooMany[i] = "t"
	}
	if err := ValidateTags(tooMany); err == nil {
		t.Errorf("expected too many tags to fail")
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(MustMoney("0.01", USD)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAmount(MustMoney("0", USD)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected zero to fail, got %v", err)
	}
	if err := ValidateAmount(MustMoney("-5", USD)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected negative to fail, got %v", err)
	}
	if err := ValidateAmount(Money{}); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected undefined currency to fail, got %v", err)
	}
}

func TestValidateDateRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := ValidateDateRange(from, from); err != nil {
		t.Errorf("single day range must be valid: %v", err)
	}
	if err := ValidateDateRange(from, from.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("expected reversed range to fail, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	limit, offset := ValidatePagination(0, -5)
	if limit != 50 || offset != 0 {
		t.Errorf("expected defaults, got limit=%d offset=%d", limit, offset)
	}
	limit, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Errorf("expected limit capped at 1000, got %d", limit)
	}
}
