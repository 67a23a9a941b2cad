package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Callers branch on these with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrLimitExceeded = errors.New("negative balance limit exceeded")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// LimitExceededError is returned when an outgoing transaction would leave
// the register below the configured floor.
type LimitExceededError struct {
	Current   decimal.Decimal
	Amount    decimal.Decimal
	Projected decimal.Decimal
	Floor     decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("negative limit exceeded: current balance %s, outgoing amount %s, projected balance %s, minimum allowed balance %s",
		FormatAmount(e.Current), FormatAmount(e.Amount), FormatAmount(e.Projected), FormatAmount(e.Floor))
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// NotFoundError wraps ErrNotFound with the kind of resource that was missing.
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// ConflictError wraps ErrConflict with a human readable message.
func ConflictError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrConflict)
}
