package patient

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/platform/sheet"
)

type Repository interface {
	List(ctx context.Context) ([]*Patient, error)
	Create(ctx context.Context, p *Patient) error
}

type sheetRepo struct {
	store  sheet.Store
	logger zerolog.Logger
}

func NewRepository(store sheet.Store, logger zerolog.Logger) Repository {
	return &sheetRepo{store: store, logger: logger}
}

func (r *sheetRepo) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.store.Rows(ctx, Table)
	if errors.Is(err, sheet.ErrTableNotFound) {
		r.logger.Warn().Err(err).Str("table", Table).Msg("patient table missing, treating as empty")
		return []*Patient{}, nil
	}
	if err != nil {
		return nil, err
	}
	recs, err := Schema.Records(rows)
	if err != nil {
		return nil, err
	}
	out := make([]*Patient, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

func (r *sheetRepo) Create(ctx context.Context, p *Patient) error {
	_, err := r.store.Append(ctx, Table, p.cells())
	return err
}
