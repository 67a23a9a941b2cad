package sheets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRow is one mirrored ledger event.
type LedgerRow struct {
	EventType     string
	OccurredAt    time.Time
	RegisterID    uuid.UUID
	TransactionID uuid.UUID
	Direction     string
	Amount        decimal.Decimal
	Description   string
}

// Key identifies the row; a given event is mirrored at most once.
func (r LedgerRow) Key() string {
	return r.EventType + ":" + r.TransactionID.String()
}

// Ports for outbound adapters.
type (
	// LedgerMirror appends ledger rows to an external spreadsheet.
	LedgerMirror interface {
		AppendLedgerRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
		// HasLedgerRow reports whether a row with key was already written.
		HasLedgerRow(ctx context.Context, key string) (bool, error)
		// LedgerRowKeys returns the keys of every row already written.
		LedgerRowKeys(ctx context.Context) ([]string, error)
	}
)
