// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings.
// Amounts are exact decimals; binary floating point never touches them.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// zero, exponents and more than two fractional digits are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,3")  -> 12.3, nil
//	ParseAmount("0")     -> error
//	ParseAmount("1.005") -> error (scale)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, NewValidationError("amount", "is not a valid number")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			// Covers signs and exponents as well as junk.
			return decimal.Zero, NewValidationError("amount", "is not a valid positive number")
		}
	}
	if s == "." {
		return decimal.Zero, NewValidationError("amount", "is not a valid number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "is not a valid number")
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that an amount is strictly positive and has at most
// two fractional digits.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewValidationError("amount", "must be greater than zero")
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return NewValidationError("amount", "must have at most 2 decimal places")
	}
	return nil
}

// ParseFloor parses the configured minimum balance. Unlike amounts it may be
// negative or zero, but never positive, and it has the same scale.
func ParseFloor(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, NewValidationError("floor", "is not a valid decimal")
	}
	if d.IsPositive() {
		return decimal.Zero, NewValidationError("floor", "must be zero or negative")
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return decimal.Zero, NewValidationError("floor", "must have at most 2 decimal places")
	}
	return d, nil
}

// FormatAmount renders d with two decimals unless that would round it.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(AmountScale)) {
		return d.StringFixed(AmountScale)
	}
	return d.String()
}
