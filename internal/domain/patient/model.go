package patient

import (
	"fmt"

	"github.com/clinic/medcab/internal/platform/sheet"
)

const Table = "patient_information"

var Schema = sheet.Schema{
	Table: Table,
	Columns: []sheet.Column{
		{Name: "id", Required: true},
		{Name: "name", Required: true},
		{Name: "surname", Required: true},
		{Name: "birthdate"},
		{Name: "room_bed"},
	},
}

// Patient maps to one row of the patient_information table. Birthdate is
// kept as entered.
type Patient struct {
	ID        string
	Name      string
	Surname   string
	Birthdate string
	RoomBed   string
}

func (p *Patient) DisplayName() string {
	return fmt.Sprintf("%s, %s", p.Surname, p.Name)
}

func (p *Patient) cells() []string {
	return Schema.Row(map[string]string{
		"id":        p.ID,
		"name":      p.Name,
		"surname":   p.Surname,
		"birthdate": p.Birthdate,
		"room_bed":  p.RoomBed,
	})
}

func fromRecord(r sheet.Record) *Patient {
	return &Patient{
		ID:        Schema.Get(r, "id"),
		Name:      Schema.Get(r, "name"),
		Surname:   Schema.Get(r, "surname"),
		Birthdate: Schema.Get(r, "birthdate"),
		RoomBed:   Schema.Get(r, "room_bed"),
	}
}
