package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	good := map[string]string{
		"12.34":   "12.34",
		"12,3":    "12.3",
		"1000":    "1000",
		" 0.01 ":  "0.01",
		"5000.00": "5000",
	}
	for in, want := range good {
		got, err := ParseAmount(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "input %q: got %s", in, got)
	}

	bad := []string{"", "0", "0.00", "-5", "+5", "1e3", "1.005", "1.2.3", ".", "abc", "12,34,5"}
	for _, in := range bad {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrValidation, "input %q", in)
	}
}

func TestParseAmountIsExact(t *testing.T) {
	a, err := ParseAmount("0.10")
	require.NoError(t, err)
	b, err := ParseAmount("0.20")
	require.NoError(t, err)
	assert.True(t, a.Add(b).Equal(decimal.RequireFromString("0.30")))
}

func TestParseFloor(t *testing.T) {
	f, err := ParseFloor("-5000")
	require.NoError(t, err)
	assert.True(t, f.Equal(decimal.NewFromInt(-5000)))

	f, err = ParseFloor("0")
	require.NoError(t, err)
	assert.True(t, f.IsZero())

	f, err = ParseFloor(" -250.5 ")
	require.NoError(t, err)
	assert.Equal(t, "-250.5", f.String())

	for _, bad := range []string{"lots", "10", "-5000.005"} {
		_, err = ParseFloor(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "-5000.00", FormatAmount(decimal.NewFromInt(-5000)))
	assert.Equal(t, "12.30", FormatAmount(decimal.RequireFromString("12.3")))
	assert.Equal(t, "-5000.005", FormatAmount(decimal.RequireFromString("-5000.005")))
}

func TestLimitExceededMessageIsExact(t *testing.T) {
	err := CheckFloor(decimal.Zero, decimal.RequireFromString("5000.01"), decimal.RequireFromString("-5000.005"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum allowed balance -5000.005")
	assert.Contains(t, err.Error(), "projected balance -5000.01")
}
