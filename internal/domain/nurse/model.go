package nurse

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/medcab/internal/platform/sheet"
)

const Table = "nurse_pin"

var Schema = sheet.Schema{
	Table: Table,
	Columns: []sheet.Column{
		{Name: "name", Required: true},
		{Name: "pin", Required: true},
	},
}

// Nurse maps to one row of the nurse_pin table.
type Nurse struct {
	Name string
	PIN  string
}

func fromRecord(r sheet.Record) *Nurse {
	return &Nurse{
		Name: Schema.Get(r, "name"),
		PIN:  Schema.Get(r, "pin"),
	}
}

// Session identifies the logged-in nurse for every operation that writes an
// audit trail.
type Session struct {
	ID      uuid.UUID
	Nurse   *Nurse
	Started time.Time
}

func (s *Session) NurseName() string {
	if s == nil || s.Nurse == nil {
		return ""
	}
	return s.Nurse.Name
}

func (s *Session) AuditID() string {
	if s == nil {
		return ""
	}
	return s.ID.String()
}
