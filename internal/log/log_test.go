package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	l.InfoContext(context.Background(), "recorded", FieldAmount, "10")
	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "amount=10")

	buf.Reset()
	l.WithComponent(ComponentAMQP).Warn("lost")
	assert.Contains(t, buf.String(), "component=amqp")
	assert.NotContains(t, buf.String(), "component=ledger")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).Info("hello")
	assert.Contains(t, buf.String(), `"component":"app"`)
}

func TestFieldsBuilder(t *testing.T) {
	reg, tx := uuid.New(), uuid.New()
	f := NewFields().
		WithTransaction(reg, tx, "OUT", decimal.RequireFromString("6001")).
		WithLimit(decimal.NewFromInt(1000), decimal.NewFromInt(-5001), decimal.NewFromInt(-5000)).
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, reg.String(), f[FieldRegisterID])
	assert.Equal(t, tx.String(), f[FieldTransactionID])
	assert.Equal(t, "6001", f[FieldAmount])
	assert.Equal(t, "-5001", f[FieldProjected])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), len(f)*2)

	noID := NewFields().WithTransaction(reg, uuid.Nil, "IN", decimal.NewFromInt(1))
	_, ok := noID[FieldTransactionID]
	assert.False(t, ok)
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	req := httptest.NewRequest(http.MethodPost, "/api/transactions?x=1", nil)

	sl.LogHTTPEnd(context.Background(), req, http.StatusUnprocessableEntity, 3, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status_code=422")

	buf.Reset()
	sl.LogHTTPEnd(context.Background(), req, http.StatusInternalServerError, 3, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestFromContextDefault(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}
