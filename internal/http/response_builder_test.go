package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"apartment/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/x").
		Body(map[string]int{"year": 2024}).
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "/x", rec.Header().Get("Location"))
	assert.JSONEq(t, `{"year":2024}`, rec.Body.String())
}

func TestJSONResponseBuilderNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestJSONResponseBuilderUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]any{"bad": make(chan int)}).Write(rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unexpected error")
}

func TestErrorFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		unexpected bool
	}{
		{"validation", core.NewValidationError("amount", "must be greater than zero"), http.StatusBadRequest, false},
		{"wrapped validation", fmt.Errorf("parse: %w", core.ErrValidation), http.StatusBadRequest, false},
		{"not found", core.NotFoundError("transaction"), http.StatusNotFound, false},
		{"conflict", core.ConflictError("year taken"), http.StatusConflict, false},
		{"limit", &core.LimitExceededError{}, http.StatusUnprocessableEntity, false},
		{"other", errors.New("boom"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, unexpected := ErrorFromDomain(tt.err)
			rec := httptest.NewRecorder()
			b.Write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.unexpected, unexpected)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.EqualValues(t, tt.status, body["status"])
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestErrorFromDomainLimitFields(t *testing.T) {
	err := core.CheckFloor(decimal.NewFromInt(1000), decimal.NewFromInt(6001), decimal.NewFromInt(-5000))
	require.Error(t, err)

	b, _ := ErrorFromDomain(fmt.Errorf("record: %w", err))
	rec := httptest.NewRecorder()
	b.Write(rec)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Negative Limit Exceeded", body.Error)
	require.NotNil(t, body.ProjectedBalance)
	assert.Equal(t, "-5001", body.ProjectedBalance.String())
	assert.Equal(t, "1000", body.CurrentBalance.String())
	assert.Equal(t, "-5000", body.MinimumBalance.String())
	assert.Equal(t, "6001", body.Amount.String())
}

func TestErrorFromDomainValidationField(t *testing.T) {
	b, _ := ErrorFromDomain(core.NewValidationError("direction", "must be IN or OUT"))
	rec := httptest.NewRecorder()
	b.Write(rec)
	assert.JSONEq(t, `"direction"`, mustField(t, rec.Body.Bytes(), "field"))
}

func mustField(t *testing.T, data []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return string(m[key])
}
