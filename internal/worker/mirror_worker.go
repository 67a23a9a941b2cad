package worker

import (
	"context"
	"fmt"

	"apartment/internal/amqp"
	"apartment/internal/core"
	"apartment/internal/log"
	"apartment/internal/sheets"
)

// LedgerSource gives the worker read access to the ledger for startup
// reconciliation. ListTransactions includes soft-deleted entries.
type LedgerSource interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

// MirrorWorker copies ledger events into a spreadsheet, one row per event.
type MirrorWorker struct {
	mirror sheets.LedgerMirror
	source LedgerSource
	logger *log.Logger
}

// NewMirrorWorker builds a worker. source may be nil, in which case
// Reconcile is a no-op.
func NewMirrorWorker(mirror sheets.LedgerMirror, source LedgerSource, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		mirror: mirror,
		source: source,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent mirrors a consumed event. Events already present in the
// sheet are acknowledged without writing, so redeliveries are harmless.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	row := RowFromEvent(ev)
	fields := log.NewFields().
		WithOperation(log.OpMirror).
		WithTransaction(ev.RegisterID, ev.TransactionID, string(ev.Direction), ev.Amount)

	exists, err := w.mirror.HasLedgerRow(ctx, row.Key())
	if err != nil {
		return fmt.Errorf("check mirrored row: %w", err)
	}
	if exists {
		w.logger.DebugContext(ctx, "Ledger event already mirrored",
			append(fields.ToSlice(), log.FieldEventType, ev.Type)...)
		return nil
	}

	ref, err := w.mirror.AppendLedgerRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append mirrored row: %w", err)
	}

	w.logger.InfoContext(ctx, "Mirrored ledger event",
		append(fields.ToSlice(), log.FieldEventType, ev.Type, "sheets_ref", ref)...)
	return nil
}

// Reconcile writes the rows missing from the sheet: a recorded row for every
// transaction and a deleted row for every soft-deleted one. It recovers from
// events lost while the worker was down and reads the sheet's keys once.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	if w.source == nil {
		return nil
	}

	txs, err := w.source.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	keys, err := w.mirror.LedgerRowKeys(ctx)
	if err != nil {
		return fmt.Errorf("read mirrored keys: %w", err)
	}
	mirrored := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		mirrored[k] = struct{}{}
	}

	written, failed := 0, 0
	for _, t := range txs {
		events := []*amqp.LedgerEvent{amqp.NewRecordedEvent(t)}
		if t.Deleted && t.EndedAt != nil {
			events = append(events, amqp.NewDeletedEvent(t, *t.EndedAt))
		}
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := RowFromEvent(ev)
			if _, ok := mirrored[row.Key()]; ok {
				continue
			}
			if _, err := w.mirror.AppendLedgerRow(ctx, row); err != nil {
				w.logger.ErrorContext(ctx, "Failed to reconcile ledger event",
					log.FieldTransactionID, t.ID.String(),
					log.FieldEventType, ev.Type,
					log.FieldError, err.Error())
				failed++
				continue
			}
			mirrored[row.Key()] = struct{}{}
			written++
		}
	}

	w.logger.InfoContext(ctx, "Startup reconciliation completed",
		"transactions", len(txs),
		"written", written,
		"errors", failed)
	return nil
}

// RowFromEvent maps a ledger event onto its spreadsheet row.
func RowFromEvent(ev *amqp.LedgerEvent) sheets.LedgerRow {
	return sheets.LedgerRow{
		EventType:     ev.Type,
		OccurredAt:    ev.OccurredAt,
		RegisterID:    ev.RegisterID,
		TransactionID: ev.TransactionID,
		Direction:     string(ev.Direction),
		Amount:        ev.Amount,
		Description:   ev.Description,
	}
}
