package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/validation"
)

const recentLogEntries = 20

func (s *Shell) patientsMenu(ctx context.Context) error {
	if err := s.Patients.Load(ctx); err != nil {
		return err
	}
	for {
		s.p.Println()
		s.p.Println("Patients")
		s.p.Println("  1. List patients")
		s.p.Println("  2. Search patients")
		s.p.Println("  3. Add patient")
		s.p.Println("  0. Back")
		choice, err := s.p.Ask("Choose an option: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			list, err := s.Patients.List(ctx)
			if err != nil {
				return err
			}
			s.printPatients(list)
		case "2":
			term, err := s.p.Ask("Search term (surname or name): ")
			if err != nil {
				return err
			}
			found, err := s.Patients.Search(ctx, term)
			if err != nil {
				return err
			}
			s.printPatients(found)
		case "3":
			if err := s.addPatient(ctx); err != nil {
				return err
			}
		case "0":
			return nil
		default:
			s.p.Println("Invalid option, try again.")
		}
	}
}

func (s *Shell) addPatient(ctx context.Context) error {
	for {
		var in patient.Patient
		fields := []struct {
			label string
			dst   *string
		}{
			{"Patient id: ", &in.ID},
			{"First name: ", &in.Name},
			{"Surname: ", &in.Surname},
			{"Birthdate: ", &in.Birthdate},
			{"Room/bed: ", &in.RoomBed},
		}
		for _, f := range fields {
			v, err := s.p.Ask(f.label)
			if err != nil {
				return err
			}
			*f.dst = v
		}

		p, err := s.Patients.Add(ctx, s.session, in)
		if errors.Is(err, validation.ErrValidationFailed) {
			s.p.Printf("%v, please enter the patient again.\n", err)
			continue
		}
		if err != nil {
			return err
		}
		s.p.Printf("Added %s (%s).\n", p.DisplayName(), p.ID)
		return nil
	}
}

func (s *Shell) printPatients(list []*patient.Patient) {
	if len(list) == 0 {
		s.p.Println("No patients found.")
		return
	}
	s.table("ID\tSURNAME\tNAME\tBIRTHDATE\tROOM/BED", func(w io.Writer) {
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Surname, p.Name, p.Birthdate, p.RoomBed)
		}
	})
}

func (s *Shell) inventoryMenu(ctx context.Context) error {
	if err := s.Inventory.Load(ctx); err != nil {
		return err
	}
	for {
		s.p.Println()
		s.p.Println("Inventory")
		s.p.Println("  1. List medications")
		s.p.Println("  2. Search medications")
		s.p.Println("  3. Add medication")
		s.p.Println("  4. Restock medication")
		s.p.Println("  5. Low stock report")
		s.p.Println("  0. Back")
		choice, err := s.p.Ask("Choose an option: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			list, err := s.Inventory.List(ctx)
			if err != nil {
				return err
			}
			s.printMedications(list)
		case "2":
			term, err := s.p.Ask("Search term (name or strength): ")
			if err != nil {
				return err
			}
			found, err := s.Inventory.Search(ctx, term)
			if err != nil {
				return err
			}
			s.printMedications(found)
		case "3":
			if err := s.addMedication(ctx); err != nil {
				return err
			}
		case "4":
			if err := s.restock(ctx); err != nil {
				return err
			}
		case "5":
			if err := s.lowStockReport(ctx); err != nil {
				return err
			}
		case "0":
			return nil
		default:
			s.p.Println("Invalid option, try again.")
		}
	}
}

func (s *Shell) addMedication(ctx context.Context) error {
	for {
		var in inventory.Input
		fields := []struct {
			label string
			dst   *string
		}{
			{"Name: ", &in.Name},
			{"Strength: ", &in.Strength},
			{"Form: ", &in.Form},
			{"Quantity in stock: ", &in.Quantity},
			{"Reorder level: ", &in.ReorderLevel},
		}
		for _, f := range fields {
			v, err := s.p.Ask(f.label)
			if err != nil {
				return err
			}
			*f.dst = v
		}

		m, err := s.Inventory.Add(ctx, s.session, in)
		switch {
		case errors.Is(err, validation.ErrValidationFailed):
			s.p.Printf("%v, please enter the medication again.\n", err)
			continue
		case errors.Is(err, inventory.ErrDuplicateMedication):
			s.p.Printf("%s %s is already in the inventory. Use restock to change its quantity.\n", in.Name, in.Strength)
			return nil
		case err != nil:
			return err
		}
		s.p.Printf("Added %s with %d in stock.\n", m.Label(), m.Quantity)
		s.Inventory.WarnIfLow(s.session, m)
		return nil
	}
}

func (s *Shell) restock(ctx context.Context) error {
	m, ok, err := selectOne(s, "medication", "medication name and strength",
		func(term string) ([]*inventory.Medication, error) { return s.Inventory.Search(ctx, term) },
		func(m *inventory.Medication) string { return fmt.Sprintf("%s  (%d in stock)", m.Label(), m.Quantity) },
		func(m *inventory.Medication) string { return m.Name + " " + m.Strength })
	if err != nil || !ok {
		return err
	}

	var qty int
	for {
		in, err := s.p.Ask(fmt.Sprintf("New quantity for %s: ", m.Label()))
		if err != nil {
			return err
		}
		qty, err = validation.NonNegativeInt("quantity", in)
		if err == nil {
			break
		}
		s.p.Printf("%v\n", err)
	}

	updated, err := s.Inventory.Restock(ctx, s.session, m.Key(), qty)
	if errors.Is(err, inventory.ErrMedicationNotFound) {
		s.p.Printf("%s is no longer in the inventory.\n", m.Label())
		return nil
	}
	if err != nil {
		return err
	}
	s.p.Printf("%s now has %d in stock.\n", updated.Label(), updated.Quantity)
	if inventory.CheckLowStock(updated) {
		s.p.Printf("WARNING: %s is still at or below its reorder level of %d.\n", updated.Label(), updated.ReorderLevel)
	}
	return nil
}

func (s *Shell) lowStockReport(ctx context.Context) error {
	low, err := s.Inventory.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(low) == 0 {
		s.p.Println("All medications are above their reorder level.")
		return nil
	}
	s.p.Println("Medications at or below their reorder level:")
	s.printMedications(low)
	return nil
}

func (s *Shell) printMedications(list []*inventory.Medication) {
	if len(list) == 0 {
		s.p.Println("No medications found.")
		return
	}
	s.table("NAME\tSTRENGTH\tFORM\tQUANTITY\tREORDER\tLAST ORDERED\tIN STOCK", func(w io.Writer) {
		for _, m := range list {
			stock := "NO"
			if m.InStock {
				stock = "YES"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				m.Name, m.Strength, m.Form, m.Quantity, m.ReorderLevel, m.LastOrdered, stock)
		}
	})
}

func (s *Shell) guidelinesMenu(ctx context.Context) error {
	term, err := s.p.Ask("Medication to look up (blank for all): ")
	if err != nil {
		return err
	}
	found, err := s.Guidelines.Search(ctx, term)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		s.p.Printf("No guidelines found for %q.\n", term)
		return nil
	}
	for _, g := range found {
		s.p.Println()
		for _, f := range g.Fields() {
			s.p.Printf("%-22s %s\n", f[0]+":", f[1])
		}
	}
	return nil
}

func (s *Shell) logsMenu(ctx context.Context) error {
	for {
		s.p.Println()
		s.p.Println("Administration log")
		s.p.Printf("  1. Last %d entries\n", recentLogEntries)
		s.p.Println("  2. Search by patient or medication")
		s.p.Println("  0. Back")
		choice, err := s.p.Ask("Choose an option: ")
		if err != nil {
			return err
		}
		var entries []*adminlog.Entry
		switch choice {
		case "1":
			entries, err = s.Logs.Recent(ctx, recentLogEntries)
		case "2":
			var term string
			term, err = s.p.Ask("Search term: ")
			if err != nil {
				return err
			}
			entries, err = s.Logs.Search(ctx, term)
		case "0":
			return nil
		default:
			s.p.Println("Invalid option, try again.")
			continue
		}
		if err != nil {
			return err
		}
		s.printEntries(entries)
	}
}

func (s *Shell) printEntries(entries []*adminlog.Entry) {
	if len(entries) == 0 {
		s.p.Println("No log entries found.")
		return
	}
	s.table("TIME\tPATIENT\tMEDICATION\tQTY\tNURSE", func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s, %s\t%s %s\t%d\t%s\n",
				e.Timestamp, e.PatientSurname, e.PatientName, e.Medication, e.Strength, e.Quantity, e.Nurse)
		}
	})
}
