package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/config"
	"github.com/clinic/medcab/internal/console"
	"github.com/clinic/medcab/internal/platform/db"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreBackend:     config.BackendMemory,
		SeedFile:         filepath.Join("..", "..", "configs", "seed.example.yaml"),
		AuditLogFile:     filepath.Join(t.TempDir(), "audit.log"),
		MaxLoginAttempts: 3,
		StoreTimeout:     time.Second,
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{{"run"}, {"low-stock"}, {"seed"}, {"migrate", "up"}, {"migrate", "status"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("expected command %v, got %v (%v)", path, cmd, err)
		}
	}
	if f := root.Commands(); len(f) < 4 {
		t.Errorf("expected at least 4 subcommands, got %d", len(f))
	}
}

func TestConnect_MemoryBackendWithSeed(t *testing.T) {
	ctx := context.Background()
	a, err := connect(ctx, memoryConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	var out bytes.Buffer
	n, err := a.printLowStock(ctx, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || !strings.Contains(out.String(), "Fentanyl") {
		t.Errorf("expected Fentanyl as the only low stock item, got %d:\n%s", n, out.String())
	}
}

func TestConnect_InteractiveSession(t *testing.T) {
	ctx := context.Background()
	a, err := connect(ctx, memoryConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	in := strings.NewReader("1234\n6\n0\n")
	var out bytes.Buffer
	if err := console.New(a.consoleDeps(), in, &out).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Welcome, Anne Byrne.") || !strings.Contains(out.String(), "Fentanyl") {
		t.Errorf("unexpected session output:\n%s", out.String())
	}
}

func TestConnect_BadSeedFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := connect(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestPrintStatuses(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	var out bytes.Buffer
	printStatuses(&out, []db.MigrationStatus{
		{Version: 1, Name: "001_sheet_rows.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_next.sql"},
	})
	got := out.String()
	if !strings.Contains(got, "applied    2026-10-01 09:30:00") || !strings.Contains(got, "pending") {
		t.Errorf("unexpected status output:\n%s", got)
	}
}
