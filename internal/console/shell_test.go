package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/administration"
	"github.com/clinic/medcab/internal/domain/guideline"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/sheet"
)

func seedStore(t *testing.T) *sheet.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := sheet.NewMemoryStore()
	tables := []struct {
		schema sheet.Schema
		rows   [][]string
	}{
		{nurse.Schema, [][]string{{"Anne Byrne", "1234"}}},
		{patient.Schema, [][]string{
			{"P-001", "Mary", "Murphy", "1941-02-03", "2A"},
			{"P-002", "John", "Murphy", "1950-07-21", "2B"},
			{"P-003", "Sean", "Kelly", "1938-11-30", "4"},
		}},
		{inventory.Schema, [][]string{
			{"Morphine", "10mg", "ampoule", "5", "2", "2026-09-01", "YES"},
			{"Diazepam", "5mg", "tablet", "30", "10", "2026-09-01", "YES"},
		}},
		{adminlog.Schema, nil},
		{guideline.Schema, [][]string{{"Morphine", "IV or oral", "2.5-10mg", "4 hourly", "Nausea", "Naloxone", ""}}},
	}
	for _, tbl := range tables {
		if err := store.EnsureTable(ctx, tbl.schema.Table, tbl.schema.Header()); err != nil {
			t.Fatalf("EnsureTable: %v", err)
		}
		for _, r := range tbl.rows {
			if _, err := store.Append(ctx, tbl.schema.Table, r); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
	}
	return store
}

func newTestShell(t *testing.T, store sheet.Store, input string) (*Shell, *bytes.Buffer) {
	t.Helper()
	audit := logging.NewAudit(&bytes.Buffer{})
	log := zerolog.Nop()
	inv := inventory.NewService(inventory.NewRepository(store, log), sheet.NewLocalLocker(), audit, log)
	logs := adminlog.NewService(adminlog.NewRepository(store, log))
	deps := Deps{
		Gate:           nurse.NewGate(nurse.NewRepository(store, log), audit, nurse.DefaultMaxAttempts),
		Patients:       patient.NewService(patient.NewRepository(store, log), audit),
		Inventory:      inv,
		Logs:           logs,
		Guidelines:     guideline.NewService(guideline.NewRepository(store, log)),
		Administration: administration.NewService(inv, logs, audit),
		Logger:         log,
	}
	var out bytes.Buffer
	return New(deps, strings.NewReader(input), &out), &out
}

func lines(in ...string) string {
	return strings.Join(in, "\n") + "\n"
}

func logRows(t *testing.T, store sheet.Store) []*adminlog.Entry {
	t.Helper()
	entries, err := adminlog.NewRepository(store, zerolog.Nop()).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return entries
}

func TestRun_LockoutAfterThreeFailures(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines("1111", "2222", "3333", "1234"))

	err := sh.Run(context.Background())
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected ErrLockedOut, got %v", err)
	}
	if sh.Session() != nil {
		t.Error("no session expected after lockout")
	}
	if !strings.Contains(out.String(), "2 attempt(s) remaining") {
		t.Errorf("expected remaining attempts notice, got:\n%s", out.String())
	}
}

func TestRun_PINIsNotTrimmed(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines(" 1234", "1234", "0"))

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Invalid PIN") || !strings.Contains(out.String(), "Welcome, Anne Byrne.") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRun_AdministerMorphine(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines(
		"1234",
		"3",
		"murphy", "p-001",
		"morph",
		"9", "5",
		"y",
		"0",
	))

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Selected P-001",
		"insufficient stock",
		"Administered 5 of Morphine 10mg to Murphy, Mary. 0 left in stock.",
		"WARNING: Morphine 10mg is at or below its reorder level",
	} {
		if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	entries := logRows(t, store)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Quantity != 5 || entries[0].Nurse != "Anne Byrne" || entries[0].PatientName != "Mary" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestRunAdministration_CancelPaths(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no patient and give up", lines("nobody", "n")},
		{"no medication and give up", lines("kelly", "ketamine", "n")},
		{"confirm is case sensitive", lines("kelly", "diazepam", "2", "Y")},
		{"confirm is not trimmed", lines("kelly", "diazepam", "2", " y ")},
		{"blank quantity", lines("kelly", "diazepam", "")},
		{"blank quantity after a bad one", lines("kelly", "diazepam", "31", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t)
			sh, out := newTestShell(t, store, tt.input)
			sh.session = &nurse.Session{Nurse: &nurse.Nurse{Name: "Anne Byrne"}}

			state, err := sh.runAdministration(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state != Cancelled {
				t.Errorf("expected %s, got %s", Cancelled, state)
			}
			if !strings.Contains(out.String(), "Administration cancelled.") {
				t.Errorf("expected cancel notice:\n%s", out.String())
			}
			if n := len(logRows(t, store)); n != 0 {
				t.Errorf("expected no log rows, got %d", n)
			}
		})
	}
}

func TestRunAdministration_SearchAgain(t *testing.T) {
	store := seedStore(t)
	sh, _ := newTestShell(t, store, lines("smith", "y", "kelly", "diazepam", "3", "y"))
	sh.session = &nurse.Session{Nurse: &nurse.Nurse{Name: "Anne Byrne"}}

	state, err := sh.runAdministration(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != Committed {
		t.Fatalf("expected %s, got %s", Committed, state)
	}
	m, err := inventory.NewRepository(store, zerolog.Nop()).Get(context.Background(), inventory.Key{Name: "diazepam", Strength: "5MG"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Quantity != 27 {
		t.Errorf("expected 27 left, got %d", m.Quantity)
	}
}

func TestRunAdministration_UnknownKeyReprompts(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines("murphy", "P-009", "P-002", "morphine", "1", "y"))
	sh.session = &nurse.Session{Nurse: &nurse.Nurse{Name: "Anne Byrne"}}

	state, err := sh.runAdministration(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != Committed {
		t.Fatalf("expected %s, got %s", Committed, state)
	}
	if !strings.Contains(out.String(), `No listed patient has patient id "P-009"`) {
		t.Errorf("expected unknown id notice:\n%s", out.String())
	}
	if e := logRows(t, store); len(e) != 1 || e[0].PatientName != "John" {
		t.Errorf("unexpected log rows: %+v", e)
	}
}

func TestRun_OutOfStockReturnsToMenu(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines(
		"1234",
		"3", "kelly", "morph", "5", "y",
		"3", "kelly", "morph", "n",
		"0",
	))

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Morphine 10mg is out of stock.",
		"Administration cancelled.",
		"Goodbye.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Quantity to administer (1-0") {
		t.Errorf("quantity prompt shown for empty stock:\n%s", got)
	}
	if n := len(logRows(t, store)); n != 1 {
		t.Errorf("expected 1 log row, got %d", n)
	}
}

func TestRunAdministration_OutOfStockChooseAnother(t *testing.T) {
	store := seedStore(t)
	if err := store.CompareAndSwap(context.Background(), inventory.Table, 2,
		[]string{"Morphine", "10mg", "ampoule", "5", "2", "2026-09-01", "YES"},
		[]string{"Morphine", "10mg", "ampoule", "0", "2", "2026-09-01", "NO"}); err != nil {
		t.Fatalf("CompareAndSwap: %v", err)
	}
	sh, out := newTestShell(t, store, lines("kelly", "morphine", "y", "diazepam", "1", "y"))
	sh.session = &nurse.Session{Nurse: &nurse.Nurse{Name: "Anne Byrne"}}

	state, err := sh.runAdministration(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != Committed {
		t.Fatalf("expected %s, got %s", Committed, state)
	}
	if !strings.Contains(out.String(), "Morphine 10mg is out of stock.") {
		t.Errorf("expected out of stock notice:\n%s", out.String())
	}
	if e := logRows(t, store); len(e) != 1 || e[0].Medication != "Diazepam" {
		t.Errorf("unexpected log rows: %+v", e)
	}
}

func TestRun_EndOfInputExits(t *testing.T) {
	store := seedStore(t)
	sh, _ := newTestShell(t, store, lines("1234", "3", "kelly"))
	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
}

func TestRun_PatientAndInventoryMenus(t *testing.T) {
	store := seedStore(t)
	sh, out := newTestShell(t, store, lines(
		"1234",
		"1", "3", "P-004", "Ann", "", "2000-01-01", "3", "P-004", "Ann", "Walsh", "2000-01-01", "3", "2", "walsh", "0",
		"2", "3", "Ibuprofen", "200mg", "tablet", "lots", "5",
		"Ibuprofen", "200mg", "tablet", "40", "5", "4", "morphine", "12", "0",
		"6",
		"4", "morph",
		"0",
	))

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"please enter the patient again",
		"Added Walsh, Ann (P-004).",
		"please enter the medication again",
		"Added Ibuprofen 200mg with 40 in stock.",
		"Morphine 10mg now has 12 in stock.",
		"All medications are above their reorder level.",
		"Naloxone",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
