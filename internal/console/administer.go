package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinic/medcab/internal/domain/administration"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/pick"
)

// State is a step of the administration workflow.
type State int

const (
	SelectPatient State = iota
	SelectMedication
	EnterQuantity
	Confirm
	Commit
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case SelectPatient:
		return "select_patient"
	case SelectMedication:
		return "select_medication"
	case EnterQuantity:
		return "enter_quantity"
	case Confirm:
		return "confirm"
	case Commit:
		return "commit"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type workflow struct {
	state      State
	patient    *patient.Patient
	medication *inventory.Medication
	quantity   int
}

func (s *Shell) administer(ctx context.Context) error {
	_, err := s.runAdministration(ctx)
	return err
}

// runAdministration walks one administration from patient selection to
// commit or cancellation and returns the state it ended in.
func (s *Shell) runAdministration(ctx context.Context) (State, error) {
	if err := s.Patients.Load(ctx); err != nil {
		return Cancelled, err
	}
	if err := s.Inventory.Load(ctx); err != nil {
		return Cancelled, err
	}

	w := &workflow{state: SelectPatient}
	for {
		s.Logger.Debug().Stringer("state", w.state).Msg("administration step")
		switch w.state {
		case SelectPatient:
			p, ok, err := selectOne(s, "patient", "patient id",
				func(term string) ([]*patient.Patient, error) { return s.Patients.Search(ctx, term) },
				func(p *patient.Patient) string { return fmt.Sprintf("%s  %s  room %s", p.ID, p.DisplayName(), p.RoomBed) },
				func(p *patient.Patient) string { return p.ID })
			if err != nil {
				return w.state, err
			}
			if !ok {
				w.state = Cancelled
				continue
			}
			w.patient = p
			w.state = SelectMedication

		case SelectMedication:
			m, ok, err := selectOne(s, "medication", "medication name and strength",
				func(term string) ([]*inventory.Medication, error) { return s.Inventory.Search(ctx, term) },
				func(m *inventory.Medication) string { return fmt.Sprintf("%s  %s  (%d in stock)", m.Label(), m.Form, m.Quantity) },
				func(m *inventory.Medication) string { return m.Name + " " + m.Strength })
			if err != nil {
				return w.state, err
			}
			if !ok {
				w.state = Cancelled
				continue
			}
			if m.Quantity <= 0 {
				s.p.Printf("%s is out of stock.\n", m.Label())
				again, err := s.p.Confirm("Choose another medication? (y/n): ")
				if err != nil {
					return w.state, err
				}
				if !again {
					w.state = Cancelled
				}
				continue
			}
			w.medication = m
			w.state = EnterQuantity

		case EnterQuantity:
			qty, ok, err := s.enterQuantity(w.medication)
			if err != nil {
				return w.state, err
			}
			if !ok {
				w.state = Cancelled
				continue
			}
			w.quantity = qty
			w.state = Confirm

		case Confirm:
			s.p.Println()
			s.p.Println("Please confirm:")
			s.p.Printf("  Patient:    %s (%s)\n", w.patient.DisplayName(), w.patient.ID)
			s.p.Printf("  Medication: %s\n", w.medication.Label())
			s.p.Printf("  Quantity:   %d\n", w.quantity)
			s.p.Printf("  Nurse:      %s\n", s.session.NurseName())
			ok, err := s.p.Confirm("Administer? (y/n): ")
			if err != nil {
				return w.state, err
			}
			if ok {
				w.state = Commit
			} else {
				w.state = Cancelled
			}

		case Commit:
			res, err := s.Administration.Commit(ctx, s.session, w.patient, w.medication, w.quantity)
			var short *inventory.InsufficientStockError
			if errors.As(err, &short) {
				s.p.Printf("Not administered: %v\n", err)
				w.state = Cancelled
				continue
			}
			if err != nil {
				return w.state, err
			}
			s.p.Printf("Administered %d of %s to %s. %d left in stock.\n",
				w.quantity, res.Medication.Label(), w.patient.DisplayName(), res.Medication.Quantity)
			if res.LowStock {
				s.p.Printf("WARNING: %s is at or below its reorder level (%d left, reorder at %d).\n",
					res.Medication.Label(), res.Medication.Quantity, res.Medication.ReorderLevel)
			}
			w.state = Committed

		case Cancelled:
			s.p.Println("Administration cancelled.")
			return w.state, nil

		case Committed:
			return w.state, nil
		}
	}
}

// enterQuantity asks until the answer is a quantity m can cover. A blank
// answer reports false.
func (s *Shell) enterQuantity(m *inventory.Medication) (int, bool, error) {
	for {
		in, err := s.p.Ask(fmt.Sprintf("Quantity to administer (1-%d, blank to cancel): ", m.Quantity))
		if err != nil {
			return 0, false, err
		}
		if in == "" {
			return 0, false, nil
		}
		qty, err := administration.ValidateQuantity(in, m)
		if err != nil {
			s.p.Printf("%v\n", err)
			continue
		}
		return qty, true, nil
	}
}

// selectOne searches until exactly one candidate is chosen. It reports false
// when the nurse gives up.
func selectOne[T any](s *Shell, noun, keyLabel string, search func(string) ([]T, error), describe, key func(T) string) (T, bool, error) {
	var zero T
	for {
		term, err := s.p.Ask(fmt.Sprintf("Search %s: ", noun))
		if err != nil {
			return zero, false, err
		}
		found, err := search(term)
		if err != nil {
			return zero, false, err
		}

		switch len(found) {
		case 0:
			s.p.Printf("No %s matches %q.\n", noun, term)
			again, err := s.p.Confirm("Search again? (y/n): ")
			if err != nil {
				return zero, false, err
			}
			if !again {
				return zero, false, nil
			}
			continue
		case 1:
			s.p.Printf("Selected %s\n", describe(found[0]))
			return found[0], true, nil
		}

		for _, c := range found {
			s.p.Printf("  %s\n", describe(c))
		}
		for {
			choice, err := s.p.Ask(fmt.Sprintf("Enter the %s (blank to search again): ", keyLabel))
			if err != nil {
				return zero, false, err
			}
			if choice == "" {
				break
			}
			c, err := pick.One(found, key, choice)
			if err == nil {
				s.p.Printf("Selected %s\n", describe(c))
				return c, true, nil
			}
			if errors.Is(err, pick.ErrAmbiguous) {
				s.p.Printf("%q matches more than one %s.\n", choice, noun)
				continue
			}
			s.p.Printf("No listed %s has %s %q.\n", noun, keyLabel, choice)
		}
	}
}
