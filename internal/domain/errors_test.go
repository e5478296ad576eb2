package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err      error
		code     string
		terminal bool
	}{
		{ErrSplitSumMismatch, CodeValidation, true},
		{fmt.Errorf("%w: tx", ErrAlreadySplit), CodeAlreadySplit, true},
		{ErrConcurrencyConflict, CodeConcurrencyConflict, false},
		{ErrTransactionNotFound, CodeNotFound, true},
		{ErrAccountNotFound, CodeNotFound, true},
		{ErrInsufficientBalance, CodeInsufficientBalance, true},
		{ErrCurrencyMismatch, CodeInvalidCurrency, true},
		{ErrDivisionByZero, CodeInvalidAmount, true},
		{fmt.Errorf("%w: boom", ErrDatabase), CodeDatabase, false},
		{errors.New("unknown"), CodeDatabase, false},
		{ErrBalanceDrift, CodeIntegrity, false},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.code {
				t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.code)
			}
			if got := IsTerminal(tt.err); got != tt.terminal {
				t.Errorf("IsTerminal(%v) = %v, want %v", tt.err, got, tt.terminal)
			}
		})
	}

	if ErrorCode(nil) != "" {
		t.Errorf("nil error must have no code")
	}
}
