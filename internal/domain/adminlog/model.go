package adminlog

import (
	"strconv"

	"github.com/clinic/medcab/internal/platform/sheet"
)

const (
	Table           = "medication_administration_logs"
	TimestampLayout = "2006-01-02 15:04:05"
)

var Schema = sheet.Schema{
	Table: Table,
	Columns: []sheet.Column{
		{Name: "timestamp", Required: true},
		{Name: "surname", Required: true},
		{Name: "name", Required: true},
		{Name: "medication", Required: true},
		{Name: "quantity", Required: true, Integer: true},
		{Name: "strength"},
		{Name: "nurse", Required: true},
	},
}

// Entry is one administration event. Entries are only ever appended.
type Entry struct {
	Timestamp      string
	PatientSurname string
	PatientName    string
	Medication     string
	Strength       string
	Quantity       int
	Nurse          string
}

func (e *Entry) cells() []string {
	return Schema.Row(map[string]string{
		"timestamp":  e.Timestamp,
		"surname":    e.PatientSurname,
		"name":       e.PatientName,
		"medication": e.Medication,
		"quantity":   strconv.Itoa(e.Quantity),
		"strength":   e.Strength,
		"nurse":      e.Nurse,
	})
}

func fromRecord(r sheet.Record) *Entry {
	return &Entry{
		Timestamp:      Schema.Get(r, "timestamp"),
		PatientSurname: Schema.Get(r, "surname"),
		PatientName:    Schema.Get(r, "name"),
		Medication:     Schema.Get(r, "medication"),
		Strength:       Schema.Get(r, "strength"),
		Quantity:       Schema.Int(r, "quantity"),
		Nurse:          Schema.Get(r, "nurse"),
	}
}
