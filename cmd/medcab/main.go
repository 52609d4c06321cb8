package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/medcab/internal/config"
	"github.com/clinic/medcab/internal/console"
	"github.com/clinic/medcab/internal/platform/db"
	"github.com/clinic/medcab/internal/seed"
)

const interruptedExitCode = 130

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "medcab",
		Short:        "Controlled medication cabinet for nurses",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(lowStockCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Log in and open the menu (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// startup loads config and connects. Failures here are fatal.
func startup(ctx context.Context) (*app, zerolog.Logger) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(cfg, os.Stderr)

	a, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to connect to record store")
	}
	return a, logger
}

func runInteractive(in io.Reader, out io.Writer) error {
	ctx := context.Background()
	a, logger := startup(ctx)
	defer a.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		fmt.Fprintln(out, "\nInterrupted, exiting.")
		logger.Warn().Str("signal", sig.String()).Msg("interrupted")
		a.Close()
		os.Exit(interruptedExitCode)
	}()

	err := console.New(a.consoleDeps(), in, out).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("session ended")
	}
	return err
}

func lowStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "low-stock",
		Short: "Print every medication at or below its reorder level",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, _ := startup(ctx)
			defer a.Close()

			_, err := a.printLowStock(ctx, cmd.OutOrStdout())
			return err
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the tables and fill empty ones from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			ctx := context.Background()
			a, logger := startup(ctx)
			defer a.Close()

			if file == "" {
				file = a.cfg.SeedFile
			}
			if file == "" {
				return fmt.Errorf("no fixture given, use --file or SEED_FILE")
			}
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			results, err := seed.Apply(ctx, a.store, f, logger)
			for _, r := range results {
				if r.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%-32s skipped (already has data)\n", r.Table)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %d row(s) added\n", r.Table, r.Rows)
			}
			return err
		},
	}
	cmd.Flags().String("file", "", "Path to the YAML fixture (defaults to SEED_FILE)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL record store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, db.Migrations()), pool.Close, nil
}

func printStatuses(out io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
