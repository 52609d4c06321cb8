package adminlog

import (
	"context"
	"fmt"
	"strings"
)

// Service reads and appends administration log rows. There is no update or
// delete.
type Service struct {
	entries Repository
}

func NewService(entries Repository) *Service {
	return &Service{entries: entries}
}

func (s *Service) Append(ctx context.Context, e *Entry) error {
	if err := s.entries.Append(ctx, e); err != nil {
		return fmt.Errorf("append administration log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Entry, error) {
	return s.entries.List(ctx)
}

// Search matches term against patient surname and name and the medication
// name.
func (s *Service) Search(ctx context.Context, term string) ([]*Entry, error) {
	all, err := s.entries.List(ctx)
	if err != nil {
		return nil, err
	}
	t := strings.ToLower(strings.TrimSpace(term))
	out := []*Entry{}
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.PatientSurname), t) ||
			strings.Contains(strings.ToLower(e.PatientName), t) ||
			strings.Contains(strings.ToLower(e.Medication), t) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Recent returns the last n entries, newest last.
func (s *Service) Recent(ctx context.Context, n int) ([]*Entry, error) {
	all, err := s.entries.List(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
