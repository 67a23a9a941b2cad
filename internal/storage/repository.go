package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"apartment/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AppendTransaction implements services.LedgerStore
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, register_id, apartment_id, fee_category_id, amount, direction, description, created_at, updated_at, ended_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(),
		t.RegisterID.String(),
		nullUUID(t.ApartmentID),
		nullUUID(t.FeeCategoryID),
		t.Amount.String(),
		string(t.Direction),
		t.Description,
		formatTime(t.CreatedAt),
		nullTime(t.UpdatedAt),
		nullTime(t.EndedAt),
		boolToInt(t.Deleted),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, core.ConflictError("transaction " + t.ID.String() + " already exists")
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", t.ID,
		"register_id", t.RegisterID,
		"direction", t.Direction,
		"amount", t.Amount.String())

	return t, nil
}

// SoftDeleteTransaction implements services.LedgerStore. The lookup is by raw
// id, so deleting an already deleted entry re-stamps ended_at.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted = 1, ended_at = ? WHERE id = ?`,
		formatTime(at), id.String())
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if n == 0 {
		return core.NotFoundError("transaction")
	}
	return nil
}

// GetTransaction returns an entry by id whether deleted or not.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id.String())
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFoundError("transaction")
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListActiveTransactions implements services.LedgerStore
func (r *SQLiteRepository) ListActiveTransactions(ctx context.Context, registerID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE register_id = ? AND deleted = 0 ORDER BY seq`,
		registerID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// ListTransactions returns every entry of every register, deleted ones
// included, in insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	return out, nil
}

// CreateRegister implements services.RegisterStore
func (r *SQLiteRepository) CreateRegister(ctx context.Context, reg core.CashRegister) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cash_registers (id, year, created_at, updated_at, ended_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID.String(), reg.Year, formatTime(reg.CreatedAt),
		nullTime(reg.UpdatedAt), nullTime(reg.EndedAt), boolToInt(reg.Deleted))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ConflictError(fmt.Sprintf("register for year %d already exists", reg.Year))
		}
		return fmt.Errorf("insert register: %w", err)
	}
	slog.InfoContext(ctx, "Register saved to SQLite", "register_id", reg.ID, "year", reg.Year)
	return nil
}

// UpdateRegister implements services.RegisterStore
func (r *SQLiteRepository) UpdateRegister(ctx context.Context, reg core.CashRegister) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cash_registers SET year = ?, updated_at = ?, ended_at = ?, deleted = ?
		WHERE id = ?`,
		reg.Year, nullTime(reg.UpdatedAt), nullTime(reg.EndedAt), boolToInt(reg.Deleted), reg.ID.String())
	if err != nil {
		if isUniqueViolation(err) {
			return core.ConflictError(fmt.Sprintf("register for year %d already exists", reg.Year))
		}
		return fmt.Errorf("update register: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update register: %w", err)
	}
	if n == 0 {
		return core.NotFoundError("register")
	}
	return nil
}

// GetRegister returns a register by id whether deleted or not.
func (r *SQLiteRepository) GetRegister(ctx context.Context, id uuid.UUID) (core.CashRegister, error) {
	row := r.db.QueryRowContext(ctx, selectRegister+` WHERE id = ?`, id.String())
	reg, err := scanRegister(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CashRegister{}, core.NotFoundError("register")
	}
	if err != nil {
		return core.CashRegister{}, fmt.Errorf("get register: %w", err)
	}
	return reg, nil
}

func (r *SQLiteRepository) ListActiveRegisters(ctx context.Context) ([]core.CashRegister, error) {
	rows, err := r.db.QueryContext(ctx, selectRegister+` WHERE deleted = 0 ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("list registers: %w", err)
	}
	defer rows.Close()

	out := make([]core.CashRegister, 0)
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, fmt.Errorf("scan register: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindActiveRegisterByYear(ctx context.Context, year int) (core.CashRegister, bool, error) {
	row := r.db.QueryRowContext(ctx, selectRegister+` WHERE year = ? AND deleted = 0`, year)
	reg, err := scanRegister(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CashRegister{}, false, nil
	}
	if err != nil {
		return core.CashRegister{}, false, fmt.Errorf("find register by year: %w", err)
	}
	return reg, true, nil
}

const selectTransaction = `
	SELECT id, register_id, apartment_id, fee_category_id, amount, direction, description,
	       created_at, updated_at, ended_at, deleted
	FROM transactions`

const selectRegister = `
	SELECT id, year, created_at, updated_at, ended_at, deleted
	FROM cash_registers`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		id, registerID, amount, direction, description, createdAt string
		apartmentID, feeCategoryID, updatedAt, endedAt            sql.NullString
		deleted                                                   int
	)
	if err := s.Scan(&id, &registerID, &apartmentID, &feeCategoryID, &amount, &direction,
		&description, &createdAt, &updatedAt, &endedAt, &deleted); err != nil {
		return core.Transaction{}, err
	}

	var (
		t   core.Transaction
		err error
	)
	if t.ID, err = uuid.Parse(id); err != nil {
		return t, fmt.Errorf("parse id: %w", err)
	}
	if t.RegisterID, err = uuid.Parse(registerID); err != nil {
		return t, fmt.Errorf("parse register_id: %w", err)
	}
	if t.ApartmentID, err = parseNullUUID(apartmentID); err != nil {
		return t, fmt.Errorf("parse apartment_id: %w", err)
	}
	if t.FeeCategoryID, err = parseNullUUID(feeCategoryID); err != nil {
		return t, fmt.Errorf("parse fee_category_id: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("parse amount: %w", err)
	}
	t.Direction = core.Direction(direction)
	t.Description = description
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return t, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return t, fmt.Errorf("parse updated_at: %w", err)
	}
	if t.EndedAt, err = parseNullTime(endedAt); err != nil {
		return t, fmt.Errorf("parse ended_at: %w", err)
	}
	t.Deleted = deleted != 0
	return t, nil
}

func scanRegister(s scanner) (core.CashRegister, error) {
	var (
		id, createdAt      string
		year, deleted      int
		updatedAt, endedAt sql.NullString
	)
	if err := s.Scan(&id, &year, &createdAt, &updatedAt, &endedAt, &deleted); err != nil {
		return core.CashRegister{}, err
	}

	var (
		reg core.CashRegister
		err error
	)
	if reg.ID, err = uuid.Parse(id); err != nil {
		return reg, fmt.Errorf("parse id: %w", err)
	}
	reg.Year = year
	if reg.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return reg, fmt.Errorf("parse created_at: %w", err)
	}
	if reg.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return reg, fmt.Errorf("parse updated_at: %w", err)
	}
	if reg.EndedAt, err = parseNullTime(endedAt); err != nil {
		return reg, fmt.Errorf("parse ended_at: %w", err)
	}
	reg.Deleted = deleted != 0
	return reg, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
