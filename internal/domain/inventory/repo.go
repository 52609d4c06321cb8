package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/platform/sheet"
)

type Repository interface {
	List(ctx context.Context) ([]*Medication, error)
	Create(ctx context.Context, m *Medication) error
	// Get re-reads the authoritative row for key.
	Get(ctx context.Context, key Key) (*Medication, error)
	// SetStock writes quantity and last ordered date over the row cur was
	// read from, failing with sheet.ErrConflict if the row changed since.
	SetStock(ctx context.Context, cur *Medication, quantity int, lastOrdered string) (*Medication, error)
}

type sheetRepo struct {
	store  sheet.Store
	logger zerolog.Logger
}

func NewRepository(store sheet.Store, logger zerolog.Logger) Repository {
	return &sheetRepo{store: store, logger: logger}
}

func (r *sheetRepo) List(ctx context.Context) ([]*Medication, error) {
	rows, err := r.store.Rows(ctx, Table)
	if errors.Is(err, sheet.ErrTableNotFound) {
		r.logger.Warn().Err(err).Str("table", Table).Msg("inventory table missing, treating as empty")
		return []*Medication{}, nil
	}
	if err != nil {
		return nil, err
	}
	recs, err := Schema.Records(rows)
	if err != nil {
		return nil, err
	}
	out := make([]*Medication, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

func (r *sheetRepo) Create(ctx context.Context, m *Medication) error {
	cells := m.newCells()
	num, err := r.store.Append(ctx, Table, cells)
	if err != nil {
		return err
	}
	m.row, m.cells = num, cells
	return nil
}

// Get returns the first row matching key. Rows that fail to parse are
// skipped unless they are the row being looked up.
func (r *sheetRepo) Get(ctx context.Context, key Key) (*Medication, error) {
	rows, err := r.store.Rows(ctx, Table)
	if errors.Is(err, sheet.ErrTableNotFound) {
		return nil, ErrMedicationNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Num <= 1 {
			continue
		}
		rec, err := Schema.Parse(row)
		if err != nil {
			if rowNamesKey(row, key) {
				return nil, err
			}
			continue
		}
		m := fromRecord(rec)
		if key.matches(m) {
			return m, nil
		}
	}
	return nil, ErrMedicationNotFound
}

func rowNamesKey(row sheet.Row, key Key) bool {
	if len(row.Cells) < 2 {
		return false
	}
	return key.matches(&Medication{Name: strings.TrimSpace(row.Cells[0]), Strength: strings.TrimSpace(row.Cells[1])})
}

func (r *sheetRepo) SetStock(ctx context.Context, cur *Medication, quantity int, lastOrdered string) (*Medication, error) {
	next := Schema.With(cur.cells, "quantity", strconv.Itoa(quantity))
	next = Schema.With(next, "in_stock", inStockText(quantity))
	next = Schema.With(next, "last_ordered_date", lastOrdered)

	if err := r.store.CompareAndSwap(ctx, Table, cur.row, cur.cells, next); err != nil {
		return nil, err
	}
	updated := *cur
	updated.Quantity = quantity
	updated.InStock = quantity > 0
	updated.LastOrdered = lastOrdered
	updated.cells = next
	return &updated, nil
}
