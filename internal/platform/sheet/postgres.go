package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps tables in the sheet/sheet_row tables created by the db
// migrations. CompareAndSwap is a single conditional UPDATE, so it holds even
// without a Locker.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) exists(ctx context.Context, table string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sheet WHERE name = $1)`, table).Scan(&ok)
	return ok, err
}

func (s *PGStore) Rows(ctx context.Context, table string) ([]Row, error) {
	ok, err := s.exists(ctx, table)
	if err != nil {
		return nil, tableErr(table, err)
	}
	if !ok {
		return nil, tableErr(table, ErrTableNotFound)
	}

	rows, err := s.pool.Query(ctx, `SELECT row_num, cells FROM sheet_row WHERE sheet = $1 ORDER BY row_num`, table)
	if err != nil {
		return nil, tableErr(table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Num, &r.Cells); err != nil {
			return nil, tableErr(table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, tableErr(table, err)
	}
	return out, nil
}

func (s *PGStore) Append(ctx context.Context, table string, cells []string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The sheet row doubles as the append lock for its table.
	var name string
	err = tx.QueryRow(ctx, `SELECT name FROM sheet WHERE name = $1 FOR UPDATE`, table).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, tableErr(table, ErrTableNotFound)
	}
	if err != nil {
		return 0, tableErr(table, err)
	}

	var num int
	if err := tx.QueryRow(ctx, `
		INSERT INTO sheet_row (sheet, row_num, cells)
		SELECT $1::text, COALESCE(MAX(row_num), 0) + 1, $2::text[] FROM sheet_row WHERE sheet = $1
		RETURNING row_num`, table, cells).Scan(&num); err != nil {
		return 0, tableErr(table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return num, nil
}

func (s *PGStore) CompareAndSwap(ctx context.Context, table string, num int, expected, next []string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sheet_row SET cells = $4, updated_at = NOW()
		WHERE sheet = $1 AND row_num = $2 AND cells = $3`,
		table, num, expected, next)
	if err != nil {
		return tableErr(table, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var found bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sheet_row WHERE sheet = $1 AND row_num = $2)`,
		table, num).Scan(&found); err != nil {
		return tableErr(table, err)
	}
	return casMiss(table, found)
}

// casMiss explains an UPDATE that matched nothing: the row is gone, or it
// no longer holds the expected cells.
func casMiss(table string, rowExists bool) error {
	if !rowExists {
		return tableErr(table, ErrRowNotFound)
	}
	return tableErr(table, ErrConflict)
}

func (s *PGStore) EnsureTable(ctx context.Context, table string, header []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO sheet (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table); err != nil {
		return tableErr(table, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO sheet_row (sheet, row_num, cells) VALUES ($1, 1, $2)
		ON CONFLICT (sheet, row_num) DO NOTHING`, table, header); err != nil {
		return tableErr(table, err)
	}
	return tx.Commit(ctx)
}
