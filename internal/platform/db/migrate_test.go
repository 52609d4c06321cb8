package db

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func mapFS(files map[string]string) fstest.MapFS {
	out := fstest.MapFS{}
	for name, content := range files {
		out[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return out
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	migrator := NewMigrator(nil, mapFS(map[string]string{
		"010_tables.sql": "SELECT 10;",
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"005_middle.sql": "SELECT 5;",
	}))
	migrations, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 5, 10} {
		if migrations[i].Version != want {
			t.Errorf("migration[%d]: expected version %d, got %d", i, want, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_first.sql" || migrations[0].SQL != "SELECT 1;" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	migrator := NewMigrator(nil, mapFS(map[string]string{
		"001_valid.sql":      "SELECT 1;",
		"readme.sql":         "-- no version prefix",
		"notes.txt":          "not a sql file",
		"abc_invalid.sql":    "-- non-numeric prefix",
		"002_also_valid.sql": "SELECT 2;",
	}))
	migrations, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	migrator := NewMigrator(nil, mapFS(map[string]string{
		"001_a.sql": "SELECT 1;",
		"01_b.sql":  "SELECT 1;",
	}))
	if _, err := migrator.LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := NewMigrator(nil, Migrations()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Version != 1 {
		t.Fatalf("expected embedded migration 1, got %+v", migrations)
	}
	for _, table := range []string{"CREATE TABLE IF NOT EXISTS sheet (", "CREATE TABLE IF NOT EXISTS sheet_row ("} {
		if !strings.Contains(migrations[0].SQL, table) {
			t.Errorf("expected %q in %s", table, migrations[0].Name)
		}
	}
}

func TestPendingAndStatuses(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "001_core.sql"},
		{Version: 2, Name: "002_more.sql"},
		{Version: 3, Name: "003_last.sql"},
	}
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	applied := map[int]time.Time{1: at}

	p := pending(migrations, applied)
	if len(p) != 2 || p[0].Version != 2 || p[1].Version != 3 {
		t.Errorf("unexpected pending: %+v", p)
	}

	st := statuses(migrations, applied)
	if len(st) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(st))
	}
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 001 applied at %v, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Error("expected migration 002 to be pending")
	}
}
