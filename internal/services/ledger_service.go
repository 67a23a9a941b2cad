package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apartment/internal/amqp"
	"apartment/internal/core"
	"apartment/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultFloor is the lowest balance a register may reach.
var DefaultFloor = decimal.NewFromInt(-5000)

// LedgerStore is the append-mostly log of register transactions.
type LedgerStore interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// SoftDeleteTransaction looks the entry up by id regardless of its
	// deleted flag and stamps EndedAt with at.
	SoftDeleteTransaction(ctx context.Context, id uuid.UUID, at time.Time) error
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	// ListActiveTransactions returns non-deleted entries in insertion order.
	ListActiveTransactions(ctx context.Context, registerID uuid.UUID) ([]core.Transaction, error)
}

// EventPublisher receives ledger events after a change is stored.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerOption configures a LedgerService.
type LedgerOption func(*LedgerService)

// WithFloor sets the minimum balance admitted by the limit guard.
func WithFloor(floor decimal.Decimal) LedgerOption {
	return func(s *LedgerService) { s.floor = floor }
}

// WithLocation sets the time zone used to bucket calendar days.
func WithLocation(loc *time.Location) LedgerOption {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPublisher enables ledger events. A nil publisher disables them.
func WithPublisher(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithIDGenerator replaces uuid.New.
func WithIDGenerator(newID func() uuid.UUID) LedgerOption {
	return func(s *LedgerService) { s.newID = newID }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) LedgerOption {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// LedgerService admits, removes and summarizes register transactions.
//
// Admission reads the current balance and appends in two steps. Both steps
// run under a lock scoped to the register, so two concurrent outgoing
// transactions can never both pass the floor check against the same stale
// balance. The lock is process local: running several writers against one
// database needs a store-level guard instead.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	floor     decimal.Decimal
	loc       *time.Location
	now       func() time.Time
	newID     func() uuid.UUID
	logger    *log.Logger

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewLedgerService(store LedgerStore, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:  store,
		floor:  DefaultFloor,
		loc:    time.UTC,
		now:    time.Now,
		newID:  uuid.New,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Floor returns the configured minimum balance.
func (s *LedgerService) Floor() decimal.Decimal { return s.floor }

// Location returns the time zone used for calendar days.
func (s *LedgerService) Location() *time.Location { return s.loc }

func (s *LedgerService) registerLock(id uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Record validates n, checks the floor for outgoing amounts and appends the
// transaction. The register is not required to exist.
func (s *LedgerService) Record(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}

	mu := s.registerLock(n.RegisterID)
	mu.Lock()
	tx, err := s.admit(ctx, n)
	mu.Unlock()
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().
			WithTransaction(tx.RegisterID, tx.ID, tx.Direction.String(), tx.Amount).
			WithOperation(log.OpRecord).
			ToSlice()...)

	s.publish(ctx, amqp.NewRecordedEvent(tx))
	return tx, nil
}

// admit must be called with the register lock held.
func (s *LedgerService) admit(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if n.Direction == core.DirectionOut {
		active, err := s.store.ListActiveTransactions(ctx, n.RegisterID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("load balance: %w", err)
		}
		current := core.Summarize(n.RegisterID, active).Balance
		if err := core.CheckFloor(current, n.Amount, s.floor); err != nil {
			var le *core.LimitExceededError
			if errors.As(err, &le) {
				s.logger.WarnContext(ctx, "Outgoing transaction rejected by floor",
					log.NewFields().
						WithTransaction(n.RegisterID, uuid.Nil, n.Direction.String(), n.Amount).
						WithLimit(le.Current, le.Projected, le.Floor).
						WithErrorType(log.ErrorTypeLimit).
						ToSlice()...)
			}
			return core.Transaction{}, err
		}
	}

	tx, err := s.store.AppendTransaction(ctx, n.Build(s.newID(), s.now().UTC()))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return tx, nil
}

// Delete soft deletes the transaction with id. Deleting an already deleted
// transaction succeeds and refreshes its end time.
func (s *LedgerService) Delete(ctx context.Context, id uuid.UUID) error {
	at := s.now().UTC()
	if err := s.store.SoftDeleteTransaction(ctx, id, at); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("soft delete transaction: %w", err)
	}

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Deleted transaction could not be reloaded",
			log.FieldTransactionID, id.String(), log.FieldError, err.Error())
		return nil
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().
			WithTransaction(tx.RegisterID, tx.ID, tx.Direction.String(), tx.Amount).
			WithOperation(log.OpDelete).
			ToSlice()...)

	s.publish(ctx, amqp.NewDeletedEvent(tx, at))
	return nil
}

// ListByRegister returns the active transactions of registerID in insertion
// order. Unknown registers yield an empty list.
func (s *LedgerService) ListByRegister(ctx context.Context, registerID uuid.UUID) ([]core.Transaction, error) {
	txs, err := s.store.ListActiveTransactions(ctx, registerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Summary returns the all-time totals of registerID.
func (s *LedgerService) Summary(ctx context.Context, registerID uuid.UUID) (core.Summary, error) {
	txs, err := s.store.ListActiveTransactions(ctx, registerID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.Summarize(registerID, txs), nil
}

// MonthlySummary returns the totals and zero-filled daily breakdown of
// registerID for the given month.
func (s *LedgerService) MonthlySummary(ctx context.Context, registerID uuid.UUID, year, month int) (core.MonthlySummary, error) {
	if err := core.ValidatePeriod(year, month); err != nil {
		return core.MonthlySummary{}, err
	}
	txs, err := s.store.ListActiveTransactions(ctx, registerID)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.SummarizeMonth(registerID, year, month, s.loc, txs)
}

// publish is best effort: the change is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, ev.Type,
			log.FieldTransactionID, ev.TransactionID.String(),
			log.FieldError, err.Error())
	}
}
