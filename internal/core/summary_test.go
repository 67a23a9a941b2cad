package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(reg uuid.UUID, dir Direction, amount string, at time.Time) Transaction {
	return Transaction{
		ID:         uuid.New(),
		RegisterID: reg,
		Amount:     dec(amount),
		Direction:  dir,
		CreatedAt:  at,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	reg := uuid.New()
	s := Summarize(reg, nil)
	assert.Equal(t, reg, s.RegisterID)
	assert.True(t, s.TotalIn.IsZero())
	assert.True(t, s.TotalOut.IsZero())
	assert.True(t, s.Balance.IsZero())
	assert.Zero(t, s.TransactionCount)
	assert.Nil(t, s.LastTransactionDate)
}

func TestSummarizeSkipsDeletedAndForeign(t *testing.T) {
	reg := uuid.New()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	deleted := tx(reg, DirectionIn, "999", base.Add(3*time.Hour))
	deleted.Deleted = true

	s := Summarize(reg, []Transaction{
		tx(reg, DirectionIn, "1000", base),
		tx(reg, DirectionOut, "250.50", base.Add(time.Hour)),
		tx(uuid.New(), DirectionIn, "7", base.Add(2*time.Hour)),
		deleted,
	})

	assert.True(t, s.TotalIn.Equal(dec("1000")))
	assert.True(t, s.TotalOut.Equal(dec("250.50")))
	assert.True(t, s.Balance.Equal(dec("749.50")))
	assert.EqualValues(t, 2, s.TransactionCount)
	assert.EqualValues(t, 1, s.InCount)
	assert.EqualValues(t, 1, s.OutCount)
	require.NotNil(t, s.LastTransactionDate)
	assert.Equal(t, base.Add(time.Hour), *s.LastTransactionDate)
}

func TestCheckFloor(t *testing.T) {
	floor := dec("-5000")

	// Landing exactly on the floor is allowed.
	require.NoError(t, CheckFloor(dec("1000"), dec("6000"), floor))

	err := CheckFloor(dec("1000"), dec("6001"), floor)
	require.ErrorIs(t, err, ErrLimitExceeded)
	var le *LimitExceededError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Current.Equal(dec("1000")))
	assert.True(t, le.Amount.Equal(dec("6001")))
	assert.True(t, le.Projected.Equal(dec("-5001")))
	assert.True(t, le.Floor.Equal(floor))
	assert.Contains(t, err.Error(), "-5001.00")
	assert.Contains(t, err.Error(), "-5000.00")
}

func TestCheckFloorZero(t *testing.T) {
	assert.NoError(t, CheckFloor(dec("10"), dec("10"), decimal.Zero))
	assert.ErrorIs(t, CheckFloor(dec("10"), dec("10.01"), decimal.Zero), ErrLimitExceeded)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 31, DaysIn(2024, 3))
	assert.Equal(t, 29, DaysIn(2024, 2))
	assert.Equal(t, 28, DaysIn(2023, 2))
	assert.Equal(t, 30, DaysIn(2024, 4))
	assert.Equal(t, 31, DaysIn(2024, 12))
}

func TestSummarizeMonthMarch(t *testing.T) {
	reg := uuid.New()
	txs := []Transaction{
		tx(reg, DirectionIn, "150", time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)),
		tx(reg, DirectionIn, "50", time.Date(2024, 3, 3, 18, 0, 0, 0, time.UTC)),
		tx(reg, DirectionOut, "50", time.Date(2024, 3, 3, 19, 0, 0, 0, time.UTC)),
		tx(reg, DirectionIn, "10", time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)),
		// Outside the month.
		tx(reg, DirectionIn, "1", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)),
		tx(reg, DirectionIn, "1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}
	// Soft-deleted entries inside the month never count.
	deletedAt := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	gone := tx(reg, DirectionOut, "70", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))
	gone.Deleted = true
	gone.EndedAt = &deletedAt
	txs = append(txs, gone)

	ms, err := SummarizeMonth(reg, 2024, 3, time.UTC, txs)
	require.NoError(t, err)
	require.Len(t, ms.Daily, 31)

	assert.Equal(t, "2024-03-01", ms.Daily[0].Date)
	assert.Equal(t, "2024-03-31", ms.Daily[30].Date)

	day3 := ms.Daily[2]
	assert.Equal(t, 3, day3.Day)
	assert.True(t, day3.TotalIn.Equal(dec("200")))
	assert.True(t, day3.TotalOut.Equal(dec("50")))

	assert.True(t, ms.Daily[1].TotalIn.IsZero())
	assert.True(t, ms.Daily[1].TotalOut.IsZero())
	assert.True(t, ms.Daily[4].TotalOut.IsZero(), "deleted entry is excluded")

	assert.True(t, ms.TotalIn.Equal(dec("210")))
	assert.True(t, ms.TotalOut.Equal(dec("50")))
	assert.True(t, ms.Balance.Equal(dec("160")))
	assert.EqualValues(t, 4, ms.TransactionCount)
	assert.EqualValues(t, 3, ms.InCount)
	assert.EqualValues(t, 1, ms.OutCount)

	sumIn, sumOut := decimal.Zero, decimal.Zero
	for _, d := range ms.Daily {
		sumIn = sumIn.Add(d.TotalIn)
		sumOut = sumOut.Add(d.TotalOut)
	}
	assert.True(t, sumIn.Equal(ms.TotalIn))
	assert.True(t, sumOut.Equal(ms.TotalOut))
}

func TestSummarizeMonthLeapFebruary(t *testing.T) {
	reg := uuid.New()
	ms, err := SummarizeMonth(reg, 2024, 2, time.UTC, []Transaction{
		tx(reg, DirectionOut, "5", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Len(t, ms.Daily, 29)
	assert.True(t, ms.Daily[28].TotalOut.Equal(dec("5")))

	ms, err = SummarizeMonth(reg, 2023, 2, time.UTC, nil)
	require.NoError(t, err)
	assert.Len(t, ms.Daily, 28)
	assert.True(t, ms.Balance.IsZero())
}

func TestSummarizeMonthTimezone(t *testing.T) {
	reg := uuid.New()
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on the 31st is already April 1st at UTC+3.
	at := time.Date(2024, 3, 31, 22, 30, 0, 0, time.UTC)

	ms, err := SummarizeMonth(reg, 2024, 3, loc, []Transaction{tx(reg, DirectionIn, "10", at)})
	require.NoError(t, err)
	assert.Zero(t, ms.TransactionCount)

	ms, err = SummarizeMonth(reg, 2024, 4, loc, []Transaction{tx(reg, DirectionIn, "10", at)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, ms.TransactionCount)
	assert.True(t, ms.Daily[0].TotalIn.Equal(dec("10")))
}

func TestSummarizeMonthValidation(t *testing.T) {
	reg := uuid.New()
	for _, month := range []int{0, 13, -1} {
		_, err := SummarizeMonth(reg, 2024, month, time.UTC, nil)
		assert.ErrorIs(t, err, ErrValidation, "month %d", month)
	}
	_, err := SummarizeMonth(reg, 0, 1, time.UTC, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
