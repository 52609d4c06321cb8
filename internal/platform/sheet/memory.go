package sheet

import (
	"context"
	"sync"
)

// MemoryStore keeps tables in process memory. It backs the demo mode and the
// tests of every repository.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][][]string)}
}

func (m *MemoryStore) Rows(_ context.Context, table string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return nil, tableErr(table, ErrTableNotFound)
	}
	rows := make([]Row, len(t))
	for i, cells := range t {
		rows[i] = Row{Num: i + 1, Cells: append([]string(nil), cells...)}
	}
	return rows, nil
}

func (m *MemoryStore) Append(_ context.Context, table string, cells []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return 0, tableErr(table, ErrTableNotFound)
	}
	m.tables[table] = append(t, append([]string(nil), cells...))
	return len(m.tables[table]), nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, table string, num int, expected, next []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[table]
	if !ok {
		return tableErr(table, ErrTableNotFound)
	}
	if num < 1 || num > len(t) {
		return tableErr(table, ErrRowNotFound)
	}
	if !SameCells(t[num-1], expected) {
		return tableErr(table, ErrConflict)
	}
	t[num-1] = append([]string(nil), next...)
	return nil
}

func (m *MemoryStore) EnsureTable(_ context.Context, table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tables[table]) == 0 {
		m.tables[table] = [][]string{append([]string(nil), header...)}
	}
	return nil
}
