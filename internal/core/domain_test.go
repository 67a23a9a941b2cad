package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"IN", DirectionIn, true},
		{"out", DirectionOut, true},
		{" In ", DirectionIn, true},
		{"", "", false},
		{"sideways", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrValidation, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		RegisterID:  uuid.New(),
		Amount:      decimal.RequireFromString("150.00"),
		Direction:   DirectionIn,
		Description: "March dues",
	}
	require.NoError(t, good.Validate())

	bads := map[string]func(n *NewTransaction){
		"missing register": func(n *NewTransaction) { n.RegisterID = uuid.Nil },
		"zero amount":      func(n *NewTransaction) { n.Amount = decimal.Zero },
		"negative amount":  func(n *NewTransaction) { n.Amount = decimal.NewFromInt(-1) },
		"three decimals":   func(n *NewTransaction) { n.Amount = decimal.RequireFromString("1.005") },
		"bad direction":    func(n *NewTransaction) { n.Direction = "UP" },
		"long description": func(n *NewTransaction) { n.Description = strings.Repeat("x", MaxDescriptionLength+1) },
	}
	for name, mutate := range bads {
		t.Run(name, func(t *testing.T) {
			n := good
			mutate(&n)
			err := n.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestNewTransactionBuild(t *testing.T) {
	now := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	id := uuid.New()
	n := NewTransaction{
		RegisterID:  uuid.New(),
		Amount:      decimal.NewFromInt(20),
		Direction:   DirectionOut,
		Description: "  light bulbs  ",
	}
	tx := n.Build(id, now)
	assert.Equal(t, id, tx.ID)
	assert.Equal(t, n.RegisterID, tx.RegisterID)
	assert.Equal(t, "light bulbs", tx.Description)
	assert.Equal(t, now, tx.CreatedAt)
	assert.True(t, tx.Active())
	assert.Nil(t, tx.EndedAt)
}

func TestValidateRegisterYear(t *testing.T) {
	assert.NoError(t, ValidateRegisterYear(2024))
	assert.NoError(t, ValidateRegisterYear(MinRegisterYear))
	assert.ErrorIs(t, ValidateRegisterYear(1899), ErrValidation)
	assert.ErrorIs(t, ValidateRegisterYear(10000), ErrValidation)
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, NotFoundError("transaction"), ErrNotFound)
	assert.Equal(t, "transaction not found", NotFoundError("transaction").Error())
	assert.ErrorIs(t, ConflictError("register for year 2024 already exists"), ErrConflict)

	var ve *ValidationError
	require.ErrorAs(t, NewValidationError("amount", "is required"), &ve)
	assert.Equal(t, "amount", ve.Field)
	assert.Equal(t, "amount: is required", ve.Error())
}
