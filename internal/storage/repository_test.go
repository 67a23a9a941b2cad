package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"apartment/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsApplied(t *testing.T) {
	repo, path := newRepo(t)
	require.NoError(t, repo.Ping(context.Background()))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	reg := uuid.New()
	apt := uuid.New()
	created := time.Date(2024, 3, 3, 10, 15, 0, 123, time.UTC)
	in := core.Transaction{
		ID:          uuid.New(),
		RegisterID:  reg,
		ApartmentID: &apt,
		Amount:      decimal.RequireFromString("1234.56"),
		Direction:   core.DirectionIn,
		Description: "dues",
		CreatedAt:   created,
	}
	_, err := repo.AppendTransaction(ctx, in)
	require.NoError(t, err)
	out := core.Transaction{
		ID:         uuid.New(),
		RegisterID: reg,
		Amount:     decimal.RequireFromString("0.10"),
		Direction:  core.DirectionOut,
		CreatedAt:  created.Add(time.Minute),
	}
	_, err = repo.AppendTransaction(ctx, out)
	require.NoError(t, err)

	got, err := repo.ListActiveTransactions(ctx, reg)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, in.ID, got[0].ID)
	assert.True(t, got[0].Amount.Equal(in.Amount))
	require.NotNil(t, got[0].ApartmentID)
	assert.Equal(t, apt, *got[0].ApartmentID)
	assert.Nil(t, got[0].FeeCategoryID)
	assert.Equal(t, "dues", got[0].Description)
	assert.True(t, got[0].CreatedAt.Equal(created))

	assert.Equal(t, out.ID, got[1].ID)
	assert.Equal(t, core.DirectionOut, got[1].Direction)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("0.1")))

	_, err = repo.AppendTransaction(ctx, in)
	assert.ErrorIs(t, err, core.ErrConflict)

	empty, err := repo.ListActiveTransactions(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	reg := uuid.New()
	tx := core.Transaction{
		ID:         uuid.New(),
		RegisterID: reg,
		Amount:     decimal.NewFromInt(10),
		Direction:  core.DirectionIn,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := repo.AppendTransaction(ctx, tx)
	require.NoError(t, err)

	first := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SoftDeleteTransaction(ctx, tx.ID, first))

	active, err := repo.ListActiveTransactions(ctx, reg)
	require.NoError(t, err)
	assert.Empty(t, active)

	second := first.Add(2 * time.Hour)
	require.NoError(t, repo.SoftDeleteTransaction(ctx, tx.ID, second))
	got, err := repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(second))

	assert.ErrorIs(t, repo.SoftDeleteTransaction(ctx, uuid.New(), second), core.ErrNotFound)
	_, err = repo.GetTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegisterPersistence(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	r := core.CashRegister{ID: uuid.New(), Year: 2024, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateRegister(ctx, r))

	dup := core.CashRegister{ID: uuid.New(), Year: 2024, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, repo.CreateRegister(ctx, dup), core.ErrConflict)

	found, ok, err := repo.FindActiveRegisterByYear(ctx, 2024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r.ID, found.ID)

	ended := time.Now().UTC()
	r.Deleted = true
	r.EndedAt = &ended
	require.NoError(t, repo.UpdateRegister(ctx, r))

	// The year is free again once the holder is deleted.
	require.NoError(t, repo.CreateRegister(ctx, dup))

	list, err := repo.ListActiveRegisters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dup.ID, list[0].ID)

	got, err := repo.GetRegister(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	require.NotNil(t, got.EndedAt)

	_, err = repo.GetRegister(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateRegister(ctx, core.CashRegister{ID: uuid.New(), Year: 2000}), core.ErrNotFound)
}

func TestListTransactionsIncludesDeleted(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	created := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i, reg := range []uuid.UUID{uuid.New(), uuid.New(), uuid.New()} {
		tx := core.Transaction{
			ID:         uuid.New(),
			RegisterID: reg,
			Amount:     decimal.NewFromInt(int64(i + 1)),
			Direction:  core.DirectionIn,
			CreatedAt:  created,
		}
		_, err := repo.AppendTransaction(ctx, tx)
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}
	require.NoError(t, repo.SoftDeleteTransaction(ctx, ids[1], created.Add(time.Hour)))

	all, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, tx := range all {
		assert.Equal(t, ids[i], tx.ID)
	}
	assert.True(t, all[1].Deleted)
	require.NotNil(t, all[1].EndedAt)
	assert.False(t, all[0].Deleted)
}
