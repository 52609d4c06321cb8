package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/validation"
)

// Service is the patient directory. It serves reads from a snapshot taken by
// Load; changes made elsewhere are not seen until the next Load.
type Service struct {
	patients Repository
	audit    *logging.Audit
	snapshot []*Patient
	loaded   bool
}

func NewService(patients Repository, audit *logging.Audit) *Service {
	return &Service{patients: patients, audit: audit}
}

// Load replaces the snapshot with the current contents of the table.
func (s *Service) Load(ctx context.Context) error {
	list, err := s.patients.List(ctx)
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}
	s.snapshot = list
	s.loaded = true
	return nil
}

func (s *Service) ensure(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.Load(ctx)
}

// List returns the snapshot in table order.
func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	out := make([]*Patient, len(s.snapshot))
	copy(out, s.snapshot)
	return out, nil
}

// Search matches term case-insensitively against surname and name. No match
// is an empty slice, not an error.
func (s *Service) Search(ctx context.Context, term string) ([]*Patient, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	t := strings.ToLower(strings.TrimSpace(term))
	out := []*Patient{}
	for _, p := range s.snapshot {
		if strings.Contains(strings.ToLower(p.Surname), t) || strings.Contains(strings.ToLower(p.Name), t) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Add validates that every field is filled in, writes the row and appends
// the patient to the snapshot. Ids are not checked for duplicates.
func (s *Service) Add(ctx context.Context, sess *nurse.Session, in Patient) (*Patient, error) {
	p, err := validate(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("add patient: %w", err)
	}
	s.snapshot = append(s.snapshot, p)
	s.audit.Record(sess.AuditID(), "patient_added").
		Str("nurse", sess.NurseName()).
		Str("patient_id", p.ID).
		Msg("patient added")
	return p, nil
}

func validate(in Patient) (*Patient, error) {
	var p Patient
	var err error
	if p.ID, err = validation.Required("id", in.ID); err != nil {
		return nil, err
	}
	if p.Name, err = validation.Required("name", in.Name); err != nil {
		return nil, err
	}
	if p.Surname, err = validation.Required("surname", in.Surname); err != nil {
		return nil, err
	}
	if p.Birthdate, err = validation.Required("birthdate", in.Birthdate); err != nil {
		return nil, err
	}
	if p.RoomBed, err = validation.Required("room_bed", in.RoomBed); err != nil {
		return nil, err
	}
	return &p, nil
}
