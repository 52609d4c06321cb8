package nurse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/medcab/internal/platform/logging"
)

const DefaultMaxAttempts = 3

var (
	ErrInvalidPIN      = errors.New("invalid PIN")
	ErrTooManyAttempts = errors.New("maximum login attempts reached")
)

// Authenticate returns the first nurse whose stored PIN equals pin exactly.
// The input is not trimmed: "1234 " does not match "1234".
func Authenticate(pin string, nurses []*Nurse) *Nurse {
	for _, n := range nurses {
		if n.PIN == pin {
			return n
		}
	}
	return nil
}

// Gate bounds PIN attempts for one process run. Once MaxAttempts failures
// have been counted it refuses every further attempt, correct or not.
type Gate struct {
	nurses      Repository
	audit       *logging.Audit
	maxAttempts int
	failures    int
	sessionID   uuid.UUID
	now         func() time.Time
}

func NewGate(nurses Repository, audit *logging.Audit, maxAttempts int) *Gate {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Gate{
		nurses:      nurses,
		audit:       audit,
		maxAttempts: maxAttempts,
		sessionID:   uuid.New(),
		now:         time.Now,
	}
}

func (g *Gate) Locked() bool {
	return g.failures >= g.maxAttempts
}

func (g *Gate) Remaining() int {
	if g.Locked() {
		return 0
	}
	return g.maxAttempts - g.failures
}

// Attempt checks pin against the nurse table. Store errors are returned as
// they are and do not count as a failed attempt.
func (g *Gate) Attempt(ctx context.Context, pin string) (*Session, error) {
	if g.Locked() {
		g.audit.Record(g.sessionID.String(), "login_denied").Str("reason", "locked").Msg("login attempt after lockout")
		return nil, ErrTooManyAttempts
	}

	nurses, err := g.nurses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load nurses: %w", err)
	}

	n := Authenticate(pin, nurses)
	if n == nil {
		g.failures++
		g.audit.Record(g.sessionID.String(), "login_failed").
			Int("attempt", g.failures).
			Int("remaining", g.Remaining()).
			Msg("invalid PIN")
		if g.Locked() {
			g.audit.Record(g.sessionID.String(), "login_locked").Int("attempts", g.failures).Msg("maximum login attempts reached")
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidPIN
	}

	g.audit.Record(g.sessionID.String(), "login_succeeded").Str("nurse", n.Name).Msg("nurse logged in")
	return &Session{ID: g.sessionID, Nurse: n, Started: g.now()}, nil
}
