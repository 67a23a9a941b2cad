package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

const (
	// AmountScale is the number of fractional digits an amount may carry.
	AmountScale = 2
	// MaxDescriptionLength bounds the free-text description, in characters.
	MaxDescriptionLength = 500

	MinRegisterYear = 1900
	MaxRegisterYear = 9999
)

type (
	// Direction tells whether a transaction adds to or takes from a register.
	Direction string

	// CashRegister is a year-scoped bucket of money movements.
	CashRegister struct {
		ID        uuid.UUID  `json:"id"`
		Year      int        `json:"year"`
		CreatedAt time.Time  `json:"createdAt"`
		UpdatedAt *time.Time `json:"updatedAt,omitempty"`
		EndedAt   *time.Time `json:"endedAt,omitempty"`
		Deleted   bool       `json:"-"`
	}

	// Transaction is a single ledger entry against a register. Amount is
	// always positive; Direction carries the sign.
	Transaction struct {
		ID            uuid.UUID       `json:"id"`
		RegisterID    uuid.UUID       `json:"registerId"`
		ApartmentID   *uuid.UUID      `json:"apartmentId,omitempty"`
		FeeCategoryID *uuid.UUID      `json:"feeCategoryId,omitempty"`
		Amount        decimal.Decimal `json:"amount"`
		Direction     Direction       `json:"direction"`
		Description   string          `json:"description,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
		EndedAt       *time.Time      `json:"endedAt,omitempty"`
		Deleted       bool            `json:"-"`
	}

	// NewTransaction is the caller-supplied part of a Transaction.
	NewTransaction struct {
		RegisterID    uuid.UUID
		ApartmentID   *uuid.UUID
		FeeCategoryID *uuid.UUID
		Amount        decimal.Decimal
		Direction     Direction
		Description   string
	}
)

// ParseDirection parses "in"/"out" case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionIn:
		return DirectionIn, nil
	case DirectionOut:
		return DirectionOut, nil
	case "":
		return "", NewValidationError("direction", "is required")
	default:
		return "", NewValidationError("direction", "must be IN or OUT")
	}
}

// Valid reports whether d is IN or OUT.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

func (d Direction) String() string {
	return string(d)
}

// Validate checks the invariants every admitted transaction must satisfy.
func (n NewTransaction) Validate() error {
	if n.RegisterID == uuid.Nil {
		return NewValidationError("registerId", "is required")
	}
	if err := ValidateAmount(n.Amount); err != nil {
		return err
	}
	if !n.Direction.Valid() {
		return NewValidationError("direction", "must be IN or OUT")
	}
	if utf8.RuneCountInString(n.Description) > MaxDescriptionLength {
		return NewValidationError("description", "too long (max 500 characters)")
	}
	return nil
}

// Build turns a validated request into a ledger entry created at now.
func (n NewTransaction) Build(id uuid.UUID, now time.Time) Transaction {
	return Transaction{
		ID:            id,
		RegisterID:    n.RegisterID,
		ApartmentID:   n.ApartmentID,
		FeeCategoryID: n.FeeCategoryID,
		Amount:        n.Amount,
		Direction:     n.Direction,
		Description:   strings.TrimSpace(n.Description),
		CreatedAt:     now,
	}
}

// Active reports whether the transaction still counts towards balances.
func (t Transaction) Active() bool {
	return !t.Deleted
}

// ValidateRegisterYear checks the year of a cash register.
func ValidateRegisterYear(year int) error {
	if year < MinRegisterYear || year > MaxRegisterYear {
		return NewValidationError("year", "must be between 1900 and 9999")
	}
	return nil
}
