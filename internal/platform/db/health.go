package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PoolStats struct {
	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	MaxConns      int32
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	}
}

func (s *PoolStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int32("total", s.TotalConns).
		Int32("idle", s.IdleConns).
		Int32("acquired", s.AcquiredConns).
		Int32("max", s.MaxConns)
}

// Check pings the database and reports the pool state.
func Check(ctx context.Context, pool *pgxpool.Pool) (*PoolStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return GetPoolStats(pool), fmt.Errorf("ping database: %w", err)
	}
	return GetPoolStats(pool), nil
}
