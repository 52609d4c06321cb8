package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/sheet"
	"github.com/clinic/medcab/internal/platform/validation"
)

const maxSwapAttempts = 3

// Input is a medication as typed into the add form.
type Input struct {
	Name         string
	Strength     string
	Form         string
	Quantity     string
	ReorderLevel string
}

// Service is the inventory ledger. Reads come from a snapshot; stock writes
// always re-read the row and go through compare-and-swap under a per
// medication lock.
type Service struct {
	meds     Repository
	locker   sheet.Locker
	audit    *logging.Audit
	logger   zerolog.Logger
	snapshot []*Medication
	loaded   bool
	now      func() time.Time
}

func NewService(meds Repository, locker sheet.Locker, audit *logging.Audit, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = sheet.NewLocalLocker()
	}
	return &Service{
		meds:   meds,
		locker: locker,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Load(ctx context.Context) error {
	list, err := s.meds.List(ctx)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
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

func (s *Service) List(ctx context.Context) ([]*Medication, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	out := make([]*Medication, len(s.snapshot))
	copy(out, s.snapshot)
	return out, nil
}

// Search matches term case-insensitively against name and strength.
func (s *Service) Search(ctx context.Context, term string) ([]*Medication, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	t := strings.ToLower(strings.TrimSpace(term))
	out := []*Medication{}
	for _, m := range s.snapshot {
		if strings.Contains(strings.ToLower(m.Name), t) || strings.Contains(strings.ToLower(m.Strength), t) {
			out = append(out, m)
		}
	}
	return out, nil
}

// LowStock reads the table afresh and returns every medication at or below
// its reorder level.
func (s *Service) LowStock(ctx context.Context) ([]*Medication, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	out := []*Medication{}
	for _, m := range s.snapshot {
		if CheckLowStock(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) Add(ctx context.Context, sess *nurse.Session, in Input) (*Medication, error) {
	m, err := s.parseInput(in)
	if err != nil {
		return nil, err
	}

	current, err := s.meds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	for _, c := range current {
		if m.Key().matches(c) {
			return nil, ErrDuplicateMedication
		}
	}

	if err := s.meds.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("add medication: %w", err)
	}
	s.snapshot = append(current, m)
	s.loaded = true
	s.audit.Record(sess.AuditID(), "medication_added").
		Str("nurse", sess.NurseName()).
		Str("medication", m.Label()).
		Int("quantity", m.Quantity).
		Msg("medication added")
	return m, nil
}

func (s *Service) parseInput(in Input) (*Medication, error) {
	var m Medication
	var err error
	if m.Name, err = validation.Required("name", in.Name); err != nil {
		return nil, err
	}
	if m.Strength, err = validation.Required("strength", in.Strength); err != nil {
		return nil, err
	}
	if m.Form, err = validation.Required("form", in.Form); err != nil {
		return nil, err
	}
	if m.Quantity, err = validation.NonNegativeInt("quantity", in.Quantity); err != nil {
		return nil, err
	}
	if m.ReorderLevel, err = validation.NonNegativeInt("reorder_level", in.ReorderLevel); err != nil {
		return nil, err
	}
	m.LastOrdered = s.now().Format(DateLayout)
	m.InStock = m.Quantity > 0
	return &m, nil
}

// UpdateStock subtracts delta from the stored quantity. A negative delta
// puts stock back. It fails with *InsufficientStockError, leaving the row
// untouched, when the result would be negative.
func (s *Service) UpdateStock(ctx context.Context, sess *nurse.Session, key Key, delta int) (*Medication, error) {
	return s.modify(ctx, sess, key, "stock_updated", func(cur *Medication) (int, string, error) {
		next := cur.Quantity - delta
		if next < 0 {
			return 0, "", &InsufficientStockError{Medication: cur.Label(), Available: cur.Quantity, Requested: delta}
		}
		return next, cur.LastOrdered, nil
	})
}

// Restock overwrites the stored quantity. An increase stamps today's date as
// the last ordered date.
func (s *Service) Restock(ctx context.Context, sess *nurse.Session, key Key, quantity int) (*Medication, error) {
	if quantity < 0 {
		return nil, &validation.ParseError{Field: "quantity", Value: fmt.Sprint(quantity), Want: "a whole number of 0 or more"}
	}
	return s.modify(ctx, sess, key, "stock_restocked", func(cur *Medication) (int, string, error) {
		last := cur.LastOrdered
		if quantity > cur.Quantity {
			last = s.now().Format(DateLayout)
		}
		return quantity, last, nil
	})
}

func (s *Service) modify(ctx context.Context, sess *nurse.Session, key Key, event string, next func(cur *Medication) (int, string, error)) (*Medication, error) {
	unlock, err := s.locker.Lock(ctx, key.lockKey())
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		cur, err := s.meds.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		quantity, lastOrdered, err := next(cur)
		if err != nil {
			return nil, err
		}

		updated, err := s.meds.SetStock(ctx, cur, quantity, lastOrdered)
		if errors.Is(err, sheet.ErrConflict) {
			s.logger.Warn().Str("medication", key.String()).Int("attempt", attempt).Msg("stock row changed during update, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("write stock for %s: %w", key, err)
		}

		s.replace(updated)
		s.audit.Record(sess.AuditID(), event).
			Str("nurse", sess.NurseName()).
			Str("medication", updated.Label()).
			Int("before", cur.Quantity).
			Int("after", updated.Quantity).
			Msg("stock changed")
		return updated, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *Service) replace(m *Medication) {
	for i, c := range s.snapshot {
		if m.Key().matches(c) {
			s.snapshot[i] = m
			return
		}
	}
}

// WarnIfLow records a low stock warning for m and reports whether one was
// raised.
func (s *Service) WarnIfLow(sess *nurse.Session, m *Medication) bool {
	if !CheckLowStock(m) {
		return false
	}
	s.logger.Warn().Str("medication", m.Label()).Int("quantity", m.Quantity).Int("reorder_level", m.ReorderLevel).Msg("stock at or below reorder level")
	s.audit.Record(sess.AuditID(), "low_stock").
		Str("medication", m.Label()).
		Int("quantity", m.Quantity).
		Int("reorder_level", m.ReorderLevel).
		Msg("stock at or below reorder level")
	return true
}
