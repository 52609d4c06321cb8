package nurse

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/sheet"
)

// -- Mock Repository --

type mockNurseRepo struct {
	nurses []*Nurse
	err    error
	calls  int
}

func (m *mockNurseRepo) List(_ context.Context) ([]*Nurse, error) {
	m.calls++
	return m.nurses, m.err
}

func testNurses() []*Nurse {
	return []*Nurse{
		{Name: "Anne Byrne", PIN: "1234"},
		{Name: "Ciara Doyle", PIN: "5678"},
		{Name: "Duplicate", PIN: "1234"},
	}
}

func TestAuthenticate_ExactMatchOnly(t *testing.T) {
	nurses := testNurses()
	tests := []struct {
		pin  string
		want string
	}{
		{"1234", "Anne Byrne"},
		{"5678", "Ciara Doyle"},
		{"1234 ", ""},
		{" 1234", ""},
		{"123", ""},
		{"12345", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := Authenticate(tt.pin, nurses)
		if tt.want == "" {
			if got != nil {
				t.Errorf("Authenticate(%q) = %s, want nil", tt.pin, got.Name)
			}
			continue
		}
		if got == nil || got.Name != tt.want {
			t.Errorf("Authenticate(%q) = %v, want %s", tt.pin, got, tt.want)
		}
	}
}

func TestAuthenticate_FirstMatchWins(t *testing.T) {
	got := Authenticate("1234", testNurses())
	if got == nil || got.Name != "Anne Byrne" {
		t.Fatalf("expected first matching nurse, got %v", got)
	}
}

func TestGate_Success(t *testing.T) {
	var buf bytes.Buffer
	g := NewGate(&mockNurseRepo{nurses: testNurses()}, logging.NewAudit(&buf), 3)

	sess, err := g.Attempt(context.Background(), "5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.NurseName() != "Ciara Doyle" {
		t.Errorf("expected Ciara Doyle, got %s", sess.NurseName())
	}
	if !strings.Contains(buf.String(), "login_succeeded") {
		t.Error("expected a login_succeeded audit line")
	}
	if strings.Contains(buf.String(), "5678") {
		t.Error("audit log must not contain the PIN")
	}
}

func TestGate_LocksAfterThreeFailures(t *testing.T) {
	g := NewGate(&mockNurseRepo{nurses: testNurses()}, nil, 3)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if _, err := g.Attempt(ctx, "0000"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("attempt %d: expected ErrInvalidPIN, got %v", i, err)
		}
		if g.Remaining() != 3-i {
			t.Errorf("attempt %d: expected %d remaining, got %d", i, 3-i, g.Remaining())
		}
	}
	if _, err := g.Attempt(ctx, "0000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("third failure: expected ErrTooManyAttempts, got %v", err)
	}
	if !g.Locked() {
		t.Fatal("expected gate to be locked")
	}

	// A correct PIN after lockout is still refused.
	if _, err := g.Attempt(ctx, "1234"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts after lockout, got %v", err)
	}
}

func TestGate_StoreErrorDoesNotCount(t *testing.T) {
	repo := &mockNurseRepo{err: errors.New("network down")}
	g := NewGate(repo, nil, 3)

	if _, err := g.Attempt(context.Background(), "1234"); err == nil {
		t.Fatal("expected error")
	}
	if g.Remaining() != 3 {
		t.Errorf("expected 3 remaining, got %d", g.Remaining())
	}
}

func TestGate_DefaultMaxAttempts(t *testing.T) {
	g := NewGate(&mockNurseRepo{}, nil, 0)
	if g.Remaining() != DefaultMaxAttempts {
		t.Errorf("expected %d, got %d", DefaultMaxAttempts, g.Remaining())
	}
}

func TestGate_SessionKeepsGateID(t *testing.T) {
	g := NewGate(&mockNurseRepo{nurses: testNurses()}, nil, 3)
	_, _ = g.Attempt(context.Background(), "bad")
	sess, err := g.Attempt(context.Background(), "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != g.sessionID {
		t.Error("session should reuse the id of its login attempts")
	}
}

func TestSheetRepo_List(t *testing.T) {
	ctx := context.Background()
	store := sheet.NewMemoryStore()
	_ = store.EnsureTable(ctx, Table, Schema.Header())
	_, _ = store.Append(ctx, Table, []string{"Anne Byrne", "1234"})

	nurses, err := NewRepository(store, zerolog.Nop()).List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nurses) != 1 || nurses[0].PIN != "1234" {
		t.Errorf("unexpected nurses: %+v", nurses)
	}
}

func TestSheetRepo_MissingTableIsEmpty(t *testing.T) {
	nurses, err := NewRepository(sheet.NewMemoryStore(), zerolog.Nop()).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nurses == nil || len(nurses) != 0 {
		t.Errorf("expected empty slice, got %#v", nurses)
	}
}

func TestSheetRepo_MalformedRow(t *testing.T) {
	ctx := context.Background()
	store := sheet.NewMemoryStore()
	_ = store.EnsureTable(ctx, Table, Schema.Header())
	_, _ = store.Append(ctx, Table, []string{"No Pin", ""})

	_, err := NewRepository(store, zerolog.Nop()).List(ctx)
	var mre *sheet.MalformedRowError
	if !errors.As(err, &mre) {
		t.Fatalf("expected MalformedRowError, got %v", err)
	}
	if mre.Column != "pin" {
		t.Errorf("expected pin column, got %s", mre.Column)
	}
}
