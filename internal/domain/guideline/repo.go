package guideline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/platform/sheet"
)

type Repository interface {
	List(ctx context.Context) ([]*Guideline, error)
}

type sheetRepo struct {
	store  sheet.Store
	logger zerolog.Logger
}

func NewRepository(store sheet.Store, logger zerolog.Logger) Repository {
	return &sheetRepo{store: store, logger: logger}
}

func (r *sheetRepo) List(ctx context.Context) ([]*Guideline, error) {
	rows, err := r.store.Rows(ctx, Table)
	if errors.Is(err, sheet.ErrTableNotFound) {
		r.logger.Warn().Err(err).Str("table", Table).Msg("guidelines table missing, treating as empty")
		return []*Guideline{}, nil
	}
	if err != nil {
		return nil, err
	}
	recs, err := Schema.Records(rows)
	if err != nil {
		return nil, err
	}
	out := make([]*Guideline, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}
