package administration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/logging"
	"github.com/clinic/medcab/internal/platform/validation"
)

var ErrNoSession = errors.New("no nurse is logged in")

// Result describes a committed administration.
type Result struct {
	Medication *inventory.Medication
	Entry      *adminlog.Entry
	LowStock   bool
}

// Service commits medication administrations: one stock decrement and one
// log row, or neither.
type Service struct {
	inventory *inventory.Service
	logs      *adminlog.Service
	audit     *logging.Audit
	now       func() time.Time
}

func NewService(inv *inventory.Service, logs *adminlog.Service, audit *logging.Audit) *Service {
	return &Service{inventory: inv, logs: logs, audit: audit, now: time.Now}
}

// ValidateQuantity parses the quantity typed by the nurse and checks it
// against the stock shown in the snapshot.
func ValidateQuantity(input string, m *inventory.Medication) (int, error) {
	qty, err := validation.PositiveInt("quantity", input)
	if err != nil {
		return 0, err
	}
	if qty > m.Quantity {
		return 0, &inventory.InsufficientStockError{Medication: m.Label(), Available: m.Quantity, Requested: qty}
	}
	return qty, nil
}

// Commit decrements stock and appends the log entry. If stock cannot be
// taken nothing is logged. If the log row cannot be written the decrement is
// reversed before the error is returned.
func (s *Service) Commit(ctx context.Context, sess *nurse.Session, p *patient.Patient, m *inventory.Medication, qty int) (*Result, error) {
	if sess == nil || sess.Nurse == nil {
		return nil, ErrNoSession
	}
	if qty <= 0 {
		return nil, &validation.ParseError{Field: "quantity", Value: fmt.Sprint(qty), Want: "a whole number greater than 0"}
	}

	updated, err := s.inventory.UpdateStock(ctx, sess, m.Key(), qty)
	if err != nil {
		s.audit.Record(sess.AuditID(), "administration_aborted").
			Str("nurse", sess.NurseName()).
			Str("patient_id", p.ID).
			Str("medication", m.Label()).
			Int("quantity", qty).
			Str("reason", err.Error()).
			Msg("administration aborted")
		return nil, err
	}

	entry := &adminlog.Entry{
		Timestamp:      s.now().Format(adminlog.TimestampLayout),
		PatientSurname: p.Surname,
		PatientName:    p.Name,
		Medication:     updated.Name,
		Strength:       updated.Strength,
		Quantity:       qty,
		Nurse:          sess.NurseName(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		if _, rerr := s.inventory.UpdateStock(ctx, sess, m.Key(), -qty); rerr != nil {
			s.audit.Record(sess.AuditID(), "administration_unlogged").
				Str("nurse", sess.NurseName()).
				Str("patient_id", p.ID).
				Str("medication", updated.Label()).
				Int("quantity", qty).
				Msg("stock taken but neither logged nor restored")
			return nil, fmt.Errorf("record administration: %w (restoring stock also failed: %v)", err, rerr)
		}
		return nil, fmt.Errorf("record administration: %w", err)
	}

	low := s.inventory.WarnIfLow(sess, updated)
	s.audit.Record(sess.AuditID(), "administration_committed").
		Str("nurse", sess.NurseName()).
		Str("patient_id", p.ID).
		Str("medication", updated.Label()).
		Int("quantity", qty).
		Int("remaining", updated.Quantity).
		Msg("medication administered")

	return &Result{Medication: updated, Entry: entry, LowStock: low}, nil
}
