package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var updatedRowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// Values are written as typed so PINs like "0042" stay text.
const rawInput = "RAW"

// SheetsStore keeps each table as a worksheet of one Google spreadsheet.
//
// CompareAndSwap reads the row and writes it in two calls. It is only safe
// against other writers that take the same Locker first; a person editing the
// sheet by hand can still race it.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheetsStore authenticates with a service-account key file and checks
// that the spreadsheet is reachable.
func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsStore, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	if _, err := srv.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}
	return &SheetsStore{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (s *SheetsStore) Rows(ctx context.Context, table string) ([]Row, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		return nil, tableErr(table, mapSheetsErr(err))
	}
	rows := make([]Row, len(resp.Values))
	for i, vals := range resp.Values {
		rows[i] = Row{Num: i + 1, Cells: toCells(vals)}
	}
	return rows, nil
}

func (s *SheetsStore) Append(ctx context.Context, table string, cells []string) (int, error) {
	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(cells)}}
	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, table+"!A1", vr).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, tableErr(table, mapSheetsErr(err))
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return appendedRow(resp.Updates.UpdatedRange), nil
}

// appendedRow reads the first row number out of an A1 range such as
// "inventory!A7:G7". It returns 0 when the range has none.
func appendedRow(updatedRange string) int {
	m := updatedRowPattern.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func (s *SheetsStore) CompareAndSwap(ctx context.Context, table string, num int, expected, next []string) error {
	width := len(expected)
	if len(next) > width {
		width = len(next)
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", table, num, columnLetter(width), num)

	cur, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return tableErr(table, mapSheetsErr(err))
	}
	var current []string
	if len(cur.Values) > 0 {
		current = toCells(cur.Values[0])
	}
	if len(current) == 0 {
		return tableErr(table, ErrRowNotFound)
	}
	if !SameCells(current, expected) {
		return tableErr(table, ErrConflict)
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{toValues(next)}}
	if _, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption(rawInput).
		Context(ctx).Do(); err != nil {
		return tableErr(table, mapSheetsErr(err))
	}
	return nil
}

func (s *SheetsStore) EnsureTable(ctx context.Context, table string, header []string) error {
	ss, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list worksheets: %w", err)
	}
	found := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == table {
			found = true
			break
		}
	}
	if !found {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: table}},
			}},
		}
		if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add worksheet %s: %w", table, err)
		}
	}

	rows, err := s.Rows(ctx, table)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	_, err = s.Append(ctx, table, header)
	return err
}

// mapSheetsErr turns the API's "unknown worksheet" response into
// ErrTableNotFound.
func mapSheetsErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
			return ErrTableNotFound
		}
		if gerr.Code == http.StatusNotFound {
			return ErrTableNotFound
		}
	}
	return err
}

func toCells(vals []interface{}) []string {
	cells := make([]string, len(vals))
	for i, v := range vals {
		cells[i] = fmt.Sprint(v)
	}
	return cells
}

func toValues(cells []string) []interface{} {
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	return vals
}

// columnLetter maps 1 -> A, 26 -> Z, 27 -> AA.
func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
