// Package seed loads a YAML fixture of nurses, patients, medications and
// guidelines into an empty record store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/guideline"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/sheet"
)

type Fixture struct {
	Nurses []struct {
		Name string `yaml:"name"`
		PIN  string `yaml:"pin"`
	} `yaml:"nurses"`
	Patients []struct {
		ID        string `yaml:"id"`
		Name      string `yaml:"name"`
		Surname   string `yaml:"surname"`
		Birthdate string `yaml:"birthdate"`
		RoomBed   string `yaml:"room_bed"`
	} `yaml:"patients"`
	Inventory []struct {
		Name         string `yaml:"name"`
		Strength     string `yaml:"strength"`
		Form         string `yaml:"form"`
		Quantity     int    `yaml:"quantity"`
		ReorderLevel int    `yaml:"reorder_level"`
		LastOrdered  string `yaml:"last_ordered_date"`
	} `yaml:"inventory"`
	Guidelines []struct {
		Medication          string `yaml:"medication"`
		Administration      string `yaml:"administration"`
		Dosage              string `yaml:"dosage"`
		Intervals           string `yaml:"intervals"`
		SideEffects         string `yaml:"side_effects"`
		EmergencyProcedures string `yaml:"emergency_procedures"`
		Notes               string `yaml:"notes"`
	} `yaml:"guidelines"`
}

// Result reports what happened to one table.
type Result struct {
	Table   string
	Rows    int
	Skipped bool
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	f := &Fixture{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, m := range f.Inventory {
		if m.Quantity < 0 || m.ReorderLevel < 0 {
			return nil, fmt.Errorf("inventory entry %d (%s %s): quantity and reorder_level must not be negative", i+1, m.Name, m.Strength)
		}
	}
	return f, nil
}

type table struct {
	schema sheet.Schema
	rows   [][]string
}

func (f *Fixture) tables() []table {
	nurses := table{schema: nurse.Schema}
	for _, n := range f.Nurses {
		nurses.rows = append(nurses.rows, nurse.Schema.Row(map[string]string{"name": n.Name, "pin": n.PIN}))
	}

	patients := table{schema: patient.Schema}
	for _, p := range f.Patients {
		patients.rows = append(patients.rows, patient.Schema.Row(map[string]string{
			"id": p.ID, "name": p.Name, "surname": p.Surname, "birthdate": p.Birthdate, "room_bed": p.RoomBed,
		}))
	}

	meds := table{schema: inventory.Schema}
	for _, m := range f.Inventory {
		inStock := "NO"
		if m.Quantity > 0 {
			inStock = "YES"
		}
		meds.rows = append(meds.rows, inventory.Schema.Row(map[string]string{
			"name":              m.Name,
			"strength":          m.Strength,
			"form":              m.Form,
			"quantity":          strconv.Itoa(m.Quantity),
			"reorder_level":     strconv.Itoa(m.ReorderLevel),
			"last_ordered_date": m.LastOrdered,
			"in_stock":          inStock,
		}))
	}

	guidelines := table{schema: guideline.Schema}
	for _, g := range f.Guidelines {
		guidelines.rows = append(guidelines.rows, guideline.Schema.Row(map[string]string{
			"medication":           g.Medication,
			"administration":       g.Administration,
			"dosage":               g.Dosage,
			"intervals":            g.Intervals,
			"side_effects":         g.SideEffects,
			"emergency_procedures": g.EmergencyProcedures,
			"notes":                g.Notes,
		}))
	}

	return []table{nurses, patients, meds, guidelines, {schema: adminlog.Schema}}
}

// Apply creates every table with its header and fills the ones that hold no
// data yet. Tables that already have rows are left alone. Errors on one table
// do not stop the others.
func Apply(ctx context.Context, store sheet.Store, f *Fixture, lgr zerolog.Logger) ([]Result, error) {
	var results []Result
	var finalErr error

	for _, t := range f.tables() {
		res, err := applyTable(ctx, store, t)
		if err != nil {
			lgr.Error().Err(err).Str("table", t.schema.Table).Msg("seeding table failed")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if res.Skipped {
			lgr.Info().Str("table", res.Table).Msg("table already has data, not seeded")
		} else {
			lgr.Info().Str("table", res.Table).Int("rows", res.Rows).Msg("table seeded")
		}
		results = append(results, res)
	}
	return results, finalErr
}

func applyTable(ctx context.Context, store sheet.Store, t table) (Result, error) {
	res := Result{Table: t.schema.Table}
	if err := store.EnsureTable(ctx, t.schema.Table, t.schema.Header()); err != nil {
		return res, fmt.Errorf("create table %s: %w", t.schema.Table, err)
	}
	existing, err := store.Rows(ctx, t.schema.Table)
	if err != nil {
		return res, err
	}
	for _, r := range existing {
		if r.Num > 1 && !sheet.SameCells(r.Cells, nil) {
			res.Skipped = true
			return res, nil
		}
	}

	for _, cells := range t.rows {
		if _, err := store.Append(ctx, t.schema.Table, cells); err != nil {
			return res, fmt.Errorf("seed %s: %w", t.schema.Table, err)
		}
		res.Rows++
	}
	return res, nil
}
