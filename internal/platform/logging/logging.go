package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string
	Pretty bool
	Output io.Writer
}

// New builds the application logger: JSON by default, console formatting
// when Pretty is set.
func New(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = cfg.Output
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Audit is the local append-only record of logins and stock events. Lines
// are JSON objects with a timestamp, an event name and the session id.
type Audit struct {
	logger zerolog.Logger
	closer io.Closer
}

// OpenAudit appends to the file at path, creating it if needed.
func OpenAudit(path string) (*Audit, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	a := NewAudit(f)
	a.closer = f
	return a, nil
}

func NewAudit(w io.Writer) *Audit {
	return &Audit{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Record starts an audit line. A nil Audit records nothing.
func (a *Audit) Record(sessionID, event string) *zerolog.Event {
	if a == nil {
		return nil
	}
	return a.logger.Log().Str("event", event).Str("session_id", sessionID)
}

func (a *Audit) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
