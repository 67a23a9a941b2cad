package memory

import (
	"context"
	"fmt"
	"sync"

	ports "apartment/internal/sheets"
)

// Mirror keeps ledger rows in process. It backs tests and local runs without
// a spreadsheet.
type Mirror struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
	keys map[string]int
}

var _ ports.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{keys: make(map[string]int)}
}

// AppendLedgerRow stores the row and returns a synthetic row reference.
func (m *Mirror) AppendLedgerRow(_ context.Context, row ports.LedgerRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	m.keys[row.Key()] = len(m.rows)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) HasLedgerRow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

// LedgerRowKeys returns the keys of the stored rows in append order.
func (m *Mirror) LedgerRowKeys(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		keys = append(keys, r.Key())
	}
	return keys, nil
}

// Rows returns a copy of the rows in append order.
func (m *Mirror) Rows() []ports.LedgerRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.LedgerRow(nil), m.rows...)
}
