package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/config"
	"github.com/clinic/medcab/internal/console"
	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/administration"
	"github.com/clinic/medcab/internal/domain/guideline"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/db"
	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/sheet"
	"github.com/clinic/medcab/internal/seed"
)

// app holds the connected record store and everything built on it.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   sheet.Store
	locker  sheet.Locker
	audit   *logging.Audit
	closers []func()
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	return logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.IsDev(), Output: out})
}

// connect opens the configured store, the locker and the audit log.
func connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = sheet.WithTimeout(store, cfg.StoreTimeout)

	if cfg.RedisURL != "" {
		rl, err := sheet.NewRedisLocker(ctx, cfg.RedisURL, cfg.LockTTL(), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rl.Close() })
		a.locker = rl
		logger.Info().Dur("lock_ttl", cfg.LockTTL()).Msg("stock writes serialized through redis")
	} else {
		a.locker = sheet.NewLocalLocker()
	}

	audit, err := logging.OpenAudit(cfg.AuditLogFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = audit.Close() })
	a.audit = audit
	return a, nil
}

func (a *app) openStore(ctx context.Context) (sheet.Store, error) {
	switch a.cfg.StoreBackend {
	case config.BackendSheets:
		s, err := sheet.NewSheetsStore(ctx, a.cfg.GoogleCredentialsFile, a.cfg.SpreadsheetID)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Str("spreadsheet_id", a.cfg.SpreadsheetID).Msg("connected to spreadsheet")
		return s, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		stats, err := db.Check(ctx, pool)
		if err != nil {
			return nil, err
		}
		a.logger.Info().Object("pool", stats).Msg("connected to database")
		return sheet.NewPGStore(pool), nil

	case config.BackendMemory:
		s := sheet.NewMemoryStore()
		if a.cfg.SeedFile != "" {
			f, err := seed.Load(a.cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			if _, err := seed.Apply(ctx, s, f, a.logger); err != nil {
				return nil, err
			}
		}
		a.logger.Warn().Msg("using in-memory store, nothing will be saved")
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) inventory() *inventory.Service {
	return inventory.NewService(inventory.NewRepository(a.store, a.logger), a.locker, a.audit, a.logger)
}

func (a *app) consoleDeps() console.Deps {
	inv := a.inventory()
	logs := adminlog.NewService(adminlog.NewRepository(a.store, a.logger))
	return console.Deps{
		Gate:           nurse.NewGate(nurse.NewRepository(a.store, a.logger), a.audit, a.cfg.MaxLoginAttempts),
		Patients:       patient.NewService(patient.NewRepository(a.store, a.logger), a.audit),
		Inventory:      inv,
		Logs:           logs,
		Guidelines:     guideline.NewService(guideline.NewRepository(a.store, a.logger)),
		Administration: administration.NewService(inv, logs, a.audit),
		Logger:         a.logger,
	}
}

func (a *app) printLowStock(ctx context.Context, out io.Writer) (int, error) {
	low, err := a.inventory().LowStock(ctx)
	if err != nil {
		return 0, err
	}
	if len(low) == 0 {
		fmt.Fprintln(out, "All medications are above their reorder level.")
		return 0, nil
	}
	fmt.Fprintf(out, "%-24s %-10s %8s %8s %s\n", "NAME", "STRENGTH", "QUANTITY", "REORDER", "LAST ORDERED")
	for _, m := range low {
		fmt.Fprintf(out, "%-24s %-10s %8d %8d %s\n", m.Name, m.Strength, m.Quantity, m.ReorderLevel, m.LastOrdered)
	}
	return len(low), nil
}
