package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"apartment/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTransactionRecorded = "transaction.recorded"
	EventTransactionDeleted  = "transaction.deleted"
)

// LedgerEvent describes a change to the ledger. It carries the full entry so
// consumers never have to read the database.
type LedgerEvent struct {
	Type          string          `json:"type"`
	TransactionID uuid.UUID       `json:"transactionId"`
	RegisterID    uuid.UUID       `json:"registerId"`
	Direction     core.Direction  `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// NewRecordedEvent builds the event emitted after t was admitted.
func NewRecordedEvent(t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionRecorded,
		TransactionID: t.ID,
		RegisterID:    t.RegisterID,
		Direction:     t.Direction,
		Amount:        t.Amount,
		Description:   t.Description,
		OccurredAt:    t.CreatedAt,
	}
}

// NewDeletedEvent builds the event emitted after t was soft deleted at.
func NewDeletedEvent(t core.Transaction, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionDeleted,
		TransactionID: t.ID,
		RegisterID:    t.RegisterID,
		Direction:     t.Direction,
		Amount:        t.Amount,
		Description:   t.Description,
		OccurredAt:    at,
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event received from the broker.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventTransactionRecorded, EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.TransactionID == uuid.Nil {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &ev, nil
}
