// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to the API error body.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"apartment/internal/core"

	"github.com/shopspring/decimal"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes none.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":500,"error":"Internal Server Error","message":"Unexpected error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`

	// Set for limit rejections only.
	CurrentBalance   *decimal.Decimal `json:"currentBalance,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	ProjectedBalance *decimal.Decimal `json:"projectedBalance,omitempty"`
	MinimumBalance   *decimal.Decimal `json:"minimumBalance,omitempty"`
}

// ErrorResponse creates an error response with the given status and message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{
		Timestamp: time.Now().UTC(),
		Status:    statusCode,
		Error:     http.StatusText(statusCode),
		Message:   message,
	})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Unexpected error")
}

// ErrorFromDomain maps an error returned by the services onto a response.
// Errors of no known kind become a 500 without detail; the second return
// value reports that case so the caller can log it.
func ErrorFromDomain(err error) (*JSONResponseBuilder, bool) {
	var limit *core.LimitExceededError
	if errors.As(err, &limit) {
		b := ErrorBody{
			Timestamp:        time.Now().UTC(),
			Status:           http.StatusUnprocessableEntity,
			Error:            "Negative Limit Exceeded",
			Message:          limit.Error(),
			CurrentBalance:   &limit.Current,
			Amount:           &limit.Amount,
			ProjectedBalance: &limit.Projected,
			MinimumBalance:   &limit.Floor,
		}
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(b), false
	}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp := ErrorBody{
			Timestamp: time.Now().UTC(),
			Status:    http.StatusBadRequest,
			Error:     http.StatusText(http.StatusBadRequest),
			Message:   ve.Error(),
			Field:     ve.Field,
		}
		return NewJSONResponse().Status(http.StatusBadRequest).Body(resp), false
	}

	switch {
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error()), false
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error()), false
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, err.Error()), false
	default:
		return InternalServerError(), true
	}
}
