// Package memory is a process-local ledger and register store. It backs the
// "memory" data backend and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"apartment/internal/core"

	"github.com/google/uuid"
)

type Store struct {
	mu        sync.Mutex
	txs       []core.Transaction
	registers []core.CashRegister
}

func New() *Store {
	return &Store{}
}

// AppendTransaction stores t at the end of the log.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return core.Transaction{}, core.ConflictError("transaction " + t.ID.String() + " already exists")
		}
	}
	s.txs = append(s.txs, t)
	return t, nil
}

// SoftDeleteTransaction marks the entry deleted and stamps EndedAt. Entries
// that are already deleted get a fresh EndedAt.
func (s *Store) SoftDeleteTransaction(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID != id {
			continue
		}
		ended := at
		s.txs[i].Deleted = true
		s.txs[i].EndedAt = &ended
		return nil
	}
	return core.NotFoundError("transaction")
}

// GetTransaction returns an entry by id whether deleted or not.
func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.NotFoundError("transaction")
}

// ListTransactions returns every entry, deleted ones included, in insertion
// order.
func (s *Store) ListTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.Transaction, 0, len(s.txs)), s.txs...), nil
}

// ListActiveTransactions returns the non-deleted entries of registerID in
// insertion order.
func (s *Store) ListActiveTransactions(_ context.Context, registerID uuid.UUID) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if t.RegisterID == registerID && t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateRegister(_ context.Context, r core.CashRegister) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.registers {
		if existing.ID == r.ID {
			return core.ConflictError("register " + r.ID.String() + " already exists")
		}
	}
	s.registers = append(s.registers, r)
	return nil
}

func (s *Store) UpdateRegister(_ context.Context, r core.CashRegister) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.registers {
		if s.registers[i].ID == r.ID {
			s.registers[i] = r
			return nil
		}
	}
	return core.NotFoundError("register")
}

// GetRegister returns a register by id whether deleted or not.
func (s *Store) GetRegister(_ context.Context, id uuid.UUID) (core.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registers {
		if r.ID == id {
			return r, nil
		}
	}
	return core.CashRegister{}, core.NotFoundError("register")
}

func (s *Store) ListActiveRegisters(_ context.Context) ([]core.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CashRegister, 0, len(s.registers))
	for _, r := range s.registers {
		if !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindActiveRegisterByYear reports the active register holding year, if any.
func (s *Store) FindActiveRegisterByYear(_ context.Context, year int) (core.CashRegister, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registers {
		if !r.Deleted && r.Year == year {
			return r, true, nil
		}
	}
	return core.CashRegister{}, false, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
