package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Summary is the all-time state of a register derived from its active
// transactions.
type Summary struct {
	RegisterID          uuid.UUID       `json:"registerId"`
	TotalIn             decimal.Decimal `json:"totalIn"`
	TotalOut            decimal.Decimal `json:"totalOut"`
	Balance             decimal.Decimal `json:"balance"`
	TransactionCount    int64           `json:"transactionCount"`
	InCount             int64           `json:"inCount"`
	OutCount            int64           `json:"outCount"`
	LastTransactionDate *time.Time      `json:"lastTransactionDate"`
}

// DailyTotal holds one calendar day of a monthly breakdown.
type DailyTotal struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	Day      int             `json:"day"`
	TotalIn  decimal.Decimal `json:"totalIn"`
	TotalOut decimal.Decimal `json:"totalOut"`
}

// MonthlySummary is a compact summary for a specific year+month with one
// DailyTotal per calendar day.
type MonthlySummary struct {
	RegisterID       uuid.UUID       `json:"registerId"`
	Year             int             `json:"year"`
	Month            int             `json:"month"` // 1-12
	TotalIn          decimal.Decimal `json:"totalIn"`
	TotalOut         decimal.Decimal `json:"totalOut"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int64           `json:"transactionCount"`
	InCount          int64           `json:"inCount"`
	OutCount         int64           `json:"outCount"`
	Daily            []DailyTotal    `json:"daily"`
}

// Summarize scans txs and derives totals, counts and the latest creation
// time for registerID. Entries of other registers and deleted entries are
// skipped.
func Summarize(registerID uuid.UUID, txs []Transaction) Summary {
	s := Summary{
		RegisterID: registerID,
		TotalIn:    decimal.Zero,
		TotalOut:   decimal.Zero,
	}
	for _, t := range txs {
		if !t.Active() || t.RegisterID != registerID {
			continue
		}
		s.TransactionCount++
		switch t.Direction {
		case DirectionIn:
			s.TotalIn = s.TotalIn.Add(t.Amount)
			s.InCount++
		case DirectionOut:
			s.TotalOut = s.TotalOut.Add(t.Amount)
			s.OutCount++
		}
		if s.LastTransactionDate == nil || t.CreatedAt.After(*s.LastTransactionDate) {
			created := t.CreatedAt
			s.LastTransactionDate = &created
		}
	}
	s.Balance = s.TotalIn.Sub(s.TotalOut)
	return s
}

// DaysIn returns the number of days in the given month of year.
func DaysIn(year, month int) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the half-open interval [start, end) covering month
// in loc.
func MonthBounds(year, month int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// ValidatePeriod checks a year/month pair.
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if year < 1 || year > MaxRegisterYear {
		return NewValidationError("year", "must be between 1 and 9999")
	}
	return nil
}

// SummarizeMonth aggregates the active transactions of registerID created
// within the given month. Calendar days are evaluated in loc.
//
// Transactions are first bucketed into two sparse day->sum maps, one per
// direction, and then every day of the month is materialized with a zero
// default, so Daily always has DaysIn(year, month) entries.
func SummarizeMonth(registerID uuid.UUID, year, month int, loc *time.Location, txs []Transaction) (MonthlySummary, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return MonthlySummary{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	start, end := MonthBounds(year, month, loc)

	ms := MonthlySummary{
		RegisterID: registerID,
		Year:       year,
		Month:      month,
		TotalIn:    decimal.Zero,
		TotalOut:   decimal.Zero,
	}

	inByDay := make(map[int]decimal.Decimal)
	outByDay := make(map[int]decimal.Decimal)
	for _, t := range txs {
		if !t.Active() || t.RegisterID != registerID {
			continue
		}
		if t.CreatedAt.Before(start) || !t.CreatedAt.Before(end) {
			continue
		}
		day := t.CreatedAt.In(loc).Day()
		ms.TransactionCount++
		switch t.Direction {
		case DirectionIn:
			ms.InCount++
			ms.TotalIn = ms.TotalIn.Add(t.Amount)
			inByDay[day] = inByDay[day].Add(t.Amount)
		case DirectionOut:
			ms.OutCount++
			ms.TotalOut = ms.TotalOut.Add(t.Amount)
			outByDay[day] = outByDay[day].Add(t.Amount)
		}
	}
	ms.Balance = ms.TotalIn.Sub(ms.TotalOut)

	days := DaysIn(year, month)
	ms.Daily = make([]DailyTotal, 0, days)
	for d := 1; d <= days; d++ {
		ms.Daily = append(ms.Daily, DailyTotal{
			Date:     time.Date(year, time.Month(month), d, 0, 0, 0, 0, loc).Format("2006-01-02"),
			Day:      d,
			TotalIn:  valueOrZero(inByDay, d),
			TotalOut: valueOrZero(outByDay, d),
		})
	}
	return ms, nil
}

func valueOrZero(m map[int]decimal.Decimal, day int) decimal.Decimal {
	if v, ok := m[day]; ok {
		return v
	}
	return decimal.Zero
}

// CheckFloor verifies that taking amount out of a register holding current
// keeps it at or above floor.
func CheckFloor(current, amount, floor decimal.Decimal) error {
	projected := current.Sub(amount)
	if projected.LessThan(floor) {
		return &LimitExceededError{
			Current:   current,
			Amount:    amount,
			Projected: projected,
			Floor:     floor,
		}
	}
	return nil
}
