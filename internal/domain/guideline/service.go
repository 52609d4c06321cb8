package guideline

import (
	"context"
	"strings"
)

type Service struct {
	guidelines Repository
}

func NewService(guidelines Repository) *Service {
	return &Service{guidelines: guidelines}
}

func (s *Service) List(ctx context.Context) ([]*Guideline, error) {
	return s.guidelines.List(ctx)
}

// Search matches term case-insensitively against the medication name.
func (s *Service) Search(ctx context.Context, term string) ([]*Guideline, error) {
	all, err := s.guidelines.List(ctx)
	if err != nil {
		return nil, err
	}
	t := strings.ToLower(strings.TrimSpace(term))
	out := []*Guideline{}
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.Medication), t) {
			out = append(out, g)
		}
	}
	return out, nil
}
