package guideline

import "github.com/clinic/medcab/internal/platform/sheet"

const Table = "guidelines"

var Schema = sheet.Schema{
	Table: Table,
	Columns: []sheet.Column{
		{Name: "medication", Required: true},
		{Name: "administration"},
		{Name: "dosage"},
		{Name: "intervals"},
		{Name: "side_effects"},
		{Name: "emergency_procedures"},
		{Name: "notes"},
	},
}

// Guideline is read-only reference text for one medication.
type Guideline struct {
	Medication          string
	Administration      string
	Dosage              string
	Intervals           string
	SideEffects         string
	EmergencyProcedures string
	Notes               string
}

// Fields returns label/value pairs in display order.
func (g *Guideline) Fields() [][2]string {
	return [][2]string{
		{"Medication", g.Medication},
		{"Administration", g.Administration},
		{"Dosage", g.Dosage},
		{"Intervals", g.Intervals},
		{"Side effects", g.SideEffects},
		{"Emergency procedures", g.EmergencyProcedures},
		{"Notes", g.Notes},
	}
}

func fromRecord(r sheet.Record) *Guideline {
	return &Guideline{
		Medication:          Schema.Get(r, "medication"),
		Administration:      Schema.Get(r, "administration"),
		Dosage:              Schema.Get(r, "dosage"),
		Intervals:           Schema.Get(r, "intervals"),
		SideEffects:         Schema.Get(r, "side_effects"),
		EmergencyProcedures: Schema.Get(r, "emergency_procedures"),
		Notes:               Schema.Get(r, "notes"),
	}
}
