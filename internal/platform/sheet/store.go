package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrRowNotFound   = errors.New("row not found")
	// ErrConflict is returned by CompareAndSwap when the stored row no longer
	// matches the expected cells.
	ErrConflict = errors.New("row changed since it was read")
)

// Row is one line of a table. Num is the 1-based row number as the backing
// spreadsheet counts it, so row 1 is always the header.
type Row struct {
	Num   int
	Cells []string
}

// Store is a set of named tables holding rows of text cells.
//
// The row contents act as the version token for CompareAndSwap: a write only
// lands when the row still holds exactly the cells the caller read.
type Store interface {
	Rows(ctx context.Context, table string) ([]Row, error)
	Append(ctx context.Context, table string, cells []string) (int, error)
	CompareAndSwap(ctx context.Context, table string, num int, expected, next []string) error
	EnsureTable(ctx context.Context, table string, header []string) error
}

// SameCells compares two rows ignoring trailing empty cells, which the
// spreadsheet API omits on read.
func SameCells(a, b []string) bool {
	a, b = trimTrailing(a), trimTrailing(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A zero or negative d returns
// next unchanged.
func WithTimeout(next Store, d time.Duration) Store {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: d}
}

func (s *timeoutStore) Rows(ctx context.Context, table string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Rows(ctx, table)
}

func (s *timeoutStore) Append(ctx context.Context, table string, cells []string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Append(ctx, table, cells)
}

func (s *timeoutStore) CompareAndSwap(ctx context.Context, table string, num int, expected, next []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.CompareAndSwap(ctx, table, num, expected, next)
}

func (s *timeoutStore) EnsureTable(ctx context.Context, table string, header []string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.EnsureTable(ctx, table, header)
}

func tableErr(table string, err error) error {
	return fmt.Errorf("table %q: %w", table, err)
}
