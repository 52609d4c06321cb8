// Package console is the interactive terminal front end: login, the main
// menu and the forms behind each entry.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/clinic/medcab/internal/domain/adminlog"
	"github.com/clinic/medcab/internal/domain/administration"
	"github.com/clinic/medcab/internal/domain/guideline"
	"github.com/clinic/medcab/internal/domain/inventory"
	"github.com/clinic/medcab/internal/domain/nurse"
	"github.com/clinic/medcab/internal/domain/patient"
	"github.com/clinic/medcab/internal/platform/sheet"
	"github.com/clinic/medcab/internal/platform/validation"
)

// ErrLockedOut is returned by Run when the login attempts are used up.
var ErrLockedOut = errors.New("locked out after too many PIN attempts")

type Deps struct {
	Gate           *nurse.Gate
	Patients       *patient.Service
	Inventory      *inventory.Service
	Logs           *adminlog.Service
	Guidelines     *guideline.Service
	Administration *administration.Service
	Logger         zerolog.Logger
}

type Shell struct {
	Deps
	p       *Prompter
	out     io.Writer
	session *nurse.Session
}

func New(deps Deps, in io.Reader, out io.Writer) *Shell {
	return &Shell{Deps: deps, p: NewPrompter(in, out), out: out}
}

// Session is the logged in nurse, nil before login.
func (s *Shell) Session() *nurse.Session {
	return s.session
}

// Run logs a nurse in and serves the main menu until the nurse exits or
// input ends.
func (s *Shell) Run(ctx context.Context) error {
	s.p.Println("Controlled Medication Cabinet")
	sess, err := s.login(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	s.session = sess
	s.p.Printf("Welcome, %s.\n", sess.NurseName())

	for {
		s.p.Println()
		s.p.Println("Main menu")
		s.p.Println("  1. Patients")
		s.p.Println("  2. Inventory")
		s.p.Println("  3. Administer medication")
		s.p.Println("  4. Guidelines")
		s.p.Println("  5. Administration log")
		s.p.Println("  6. Low stock report")
		s.p.Println("  0. Exit")
		choice, err := s.p.Ask("Choose an option: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var menuErr error
		switch choice {
		case "1":
			menuErr = s.patientsMenu(ctx)
		case "2":
			menuErr = s.inventoryMenu(ctx)
		case "3":
			menuErr = s.administer(ctx)
		case "4":
			menuErr = s.guidelinesMenu(ctx)
		case "5":
			menuErr = s.logsMenu(ctx)
		case "6":
			menuErr = s.lowStockReport(ctx)
		case "0", "q", "exit":
			s.p.Println("Goodbye.")
			return nil
		default:
			s.p.Println("Invalid option, try again.")
			continue
		}
		if errors.Is(menuErr, io.EOF) {
			return nil
		}
		if menuErr != nil {
			s.report(choice, menuErr)
		}
	}
}

func (s *Shell) login(ctx context.Context) (*nurse.Session, error) {
	for {
		if s.Gate.Locked() {
			s.p.Println("Maximum login attempts reached. Exiting.")
			return nil, ErrLockedOut
		}
		pin, err := s.p.Raw("Enter your PIN: ")
		if err != nil {
			return nil, err
		}
		sess, err := s.Gate.Attempt(ctx, pin)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, nurse.ErrTooManyAttempts):
			s.p.Println("Maximum login attempts reached. Exiting.")
			return nil, ErrLockedOut
		case errors.Is(err, nurse.ErrInvalidPIN):
			s.p.Printf("Invalid PIN. %d attempt(s) remaining.\n", s.Gate.Remaining())
		default:
			return nil, err
		}
	}
}

// report prints an error that ended a menu action. The loop carries on.
func (s *Shell) report(menu string, err error) {
	var malformed *sheet.MalformedRowError
	switch {
	case errors.As(err, &malformed):
		s.p.Printf("The %s table has a bad row: %v\n", malformed.Table, err)
	case errors.Is(err, validation.ErrValidationFailed):
		s.p.Printf("%v\n", err)
		return
	default:
		s.p.Printf("Error: %v\n", err)
	}
	s.Logger.Error().Err(err).Str("menu", menu).Str("session_id", s.session.AuditID()).Msg("menu action failed")
}

func (s *Shell) table(header string, rows func(w io.Writer)) {
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	tw.Flush()
}
