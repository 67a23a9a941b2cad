// Package http provides HTTP server and handler implementations.
//
// This file implements request decoding: bounded JSON bodies, path ids,
// query periods and exact decimal amounts.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"apartment/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// MonthParams holds the year/month query parameters of a monthly summary.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads the required year and month query parameters.
func ParseMonthParams(r *http.Request) (MonthParams, error) {
	q := r.URL.Query()
	year, err := requiredInt(q.Get("year"), "year")
	if err != nil {
		return MonthParams{}, err
	}
	month, err := requiredInt(q.Get("month"), "month")
	if err != nil {
		return MonthParams{}, err
	}
	return MonthParams{Year: year, Month: month}, nil
}

func requiredInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, core.NewValidationError(field, "is required")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(field, "must be an integer")
	}
	return v, nil
}

// PathUUID parses the named path wildcard as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	if raw == "" {
		return uuid.Nil, core.NewValidationError(name, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, core.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

// DecodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return core.NewValidationError("", fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes))
		case errors.Is(err, io.EOF):
			return core.NewValidationError("", "request body is empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return core.NewValidationError("", "request body is not valid JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field == "" {
				return core.NewValidationError("", "request body has a field of the wrong type")
			}
			return core.NewValidationError(typeErr.Field, "has the wrong type")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return core.NewValidationError(field, "is not a known field")
		default:
			return core.NewValidationError("", "request body is not valid JSON")
		}
	}
	if dec.More() {
		return core.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

// Amount accepts a JSON number or string. Numbers are taken from their
// literal text, never through float64.
type Amount struct {
	raw string
	set bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	a.set = true
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	a.raw = n.String()
	return nil
}

// Decimal parses the amount with the ledger's amount rules.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if !a.set {
		return decimal.Zero, core.NewValidationError("amount", "is required")
	}
	return core.ParseAmount(a.raw)
}

// OptionalUUID parses s when non-empty.
func OptionalUUID(s *string, field string) (*uuid.UUID, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, core.NewValidationError(field, "must be a valid UUID")
	}
	return &id, nil
}
