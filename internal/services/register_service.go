package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"apartment/internal/core"
	"apartment/internal/log"

	"github.com/google/uuid"
)

// RegisterStore persists cash registers. Lookups by id return deleted
// registers too; callers decide what deleted means.
type RegisterStore interface {
	CreateRegister(ctx context.Context, r core.CashRegister) error
	UpdateRegister(ctx context.Context, r core.CashRegister) error
	GetRegister(ctx context.Context, id uuid.UUID) (core.CashRegister, error)
	ListActiveRegisters(ctx context.Context) ([]core.CashRegister, error)
	FindActiveRegisterByYear(ctx context.Context, year int) (core.CashRegister, bool, error)
}

// RegisterService manages the yearly cash registers. At most one active
// register exists per year.
type RegisterService struct {
	store  RegisterStore
	now    func() time.Time
	newID  func() uuid.UUID
	logger *log.Logger

	// Serializes the year uniqueness check with the write that follows it.
	mu sync.Mutex
}

func NewRegisterService(store RegisterStore, logger *log.Logger) *RegisterService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RegisterService{
		store:  store,
		now:    time.Now,
		newID:  uuid.New,
		logger: logger.WithComponent(log.ComponentRegister),
	}
}

func (s *RegisterService) List(ctx context.Context) ([]core.CashRegister, error) {
	regs, err := s.store.ListActiveRegisters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registers: %w", err)
	}
	return regs, nil
}

// Get returns an active register; deleted ones are reported as not found.
func (s *RegisterService) Get(ctx context.Context, id uuid.UUID) (core.CashRegister, error) {
	r, err := s.store.GetRegister(ctx, id)
	if err != nil {
		return core.CashRegister{}, err
	}
	if r.Deleted {
		return core.CashRegister{}, core.NotFoundError("register")
	}
	return r, nil
}

func (s *RegisterService) Create(ctx context.Context, year int) (core.CashRegister, error) {
	if err := core.ValidateRegisterYear(year); err != nil {
		return core.CashRegister{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureYearFree(ctx, year, uuid.Nil); err != nil {
		return core.CashRegister{}, err
	}
	r := core.CashRegister{ID: s.newID(), Year: year, CreatedAt: s.now().UTC()}
	if err := s.store.CreateRegister(ctx, r); err != nil {
		return core.CashRegister{}, err
	}

	s.logger.InfoContext(ctx, "Register created",
		log.FieldRegisterID, r.ID.String(), log.FieldYear, year)
	return r, nil
}

// UpdateYear moves the register to another year.
func (s *RegisterService) UpdateYear(ctx context.Context, id uuid.UUID, year int) (core.CashRegister, error) {
	if err := core.ValidateRegisterYear(year); err != nil {
		return core.CashRegister{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.Get(ctx, id)
	if err != nil {
		return core.CashRegister{}, err
	}
	if err := s.ensureYearFree(ctx, year, id); err != nil {
		return core.CashRegister{}, err
	}

	now := s.now().UTC()
	r.Year = year
	r.UpdatedAt = &now
	if err := s.store.UpdateRegister(ctx, r); err != nil {
		return core.CashRegister{}, err
	}

	s.logger.InfoContext(ctx, "Register updated",
		log.FieldRegisterID, r.ID.String(), log.FieldYear, year)
	return r, nil
}

// Delete soft deletes an active register.
func (s *RegisterService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	r.Deleted = true
	r.EndedAt = &now
	if err := s.store.UpdateRegister(ctx, r); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Register deleted", log.FieldRegisterID, r.ID.String())
	return nil
}

func (s *RegisterService) ensureYearFree(ctx context.Context, year int, self uuid.UUID) error {
	holder, ok, err := s.store.FindActiveRegisterByYear(ctx, year)
	if err != nil {
		return fmt.Errorf("check register year: %w", err)
	}
	if ok && holder.ID != self {
		return core.ConflictError(fmt.Sprintf("register for year %d already exists", year))
	}
	return nil
}
