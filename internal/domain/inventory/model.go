package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/clinic/medcab/internal/platform/sheet"
)

const (
	Table      = "inventory"
	DateLayout = "2006-01-02"
)

var Schema = sheet.Schema{
	Table: Table,
	Columns: []sheet.Column{
		{Name: "name", Required: true},
		{Name: "strength", Required: true},
		{Name: "form"},
		{Name: "quantity", Required: true, Integer: true},
		{Name: "reorder_level", Required: true, Integer: true},
		{Name: "last_ordered_date"},
		{Name: "in_stock"},
	},
}

var (
	ErrMedicationNotFound  = errors.New("medication not found")
	ErrDuplicateMedication = errors.New("medication with this name and strength already exists")
	// ErrConcurrentUpdate means the row kept changing between read and write.
	ErrConcurrentUpdate = errors.New("stock was changed by someone else, try again")
)

// InsufficientStockError is returned when a decrement would take stock
// below zero. Stock is left unchanged.
type InsufficientStockError struct {
	Medication string
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.Medication, e.Available, e.Requested)
}

// Key identifies a medication by name and strength, ignoring case.
type Key struct {
	Name     string
	Strength string
}

func (k Key) String() string {
	return strings.TrimSpace(k.Name + " " + k.Strength)
}

func (k Key) lockKey() string {
	return "inventory:" + strings.ToLower(k.Name) + "|" + strings.ToLower(k.Strength)
}

func (k Key) matches(m *Medication) bool {
	return strings.EqualFold(strings.TrimSpace(k.Name), m.Name) &&
		strings.EqualFold(strings.TrimSpace(k.Strength), m.Strength)
}

// Medication maps to one row of the inventory table.
type Medication struct {
	Name         string
	Strength     string
	Form         string
	Quantity     int
	ReorderLevel int
	LastOrdered  string
	InStock      bool

	row   int
	cells []string
}

func (m *Medication) Key() Key {
	return Key{Name: m.Name, Strength: m.Strength}
}

func (m *Medication) Label() string {
	return m.Key().String()
}

// CheckLowStock reports whether stock is at or below the reorder level.
func CheckLowStock(m *Medication) bool {
	return m.Quantity <= m.ReorderLevel
}

func inStockText(quantity int) string {
	if quantity > 0 {
		return "YES"
	}
	return "NO"
}

func (m *Medication) newCells() []string {
	return Schema.Row(map[string]string{
		"name":              m.Name,
		"strength":          m.Strength,
		"form":              m.Form,
		"quantity":          strconv.Itoa(m.Quantity),
		"reorder_level":     strconv.Itoa(m.ReorderLevel),
		"last_ordered_date": m.LastOrdered,
		"in_stock":          inStockText(m.Quantity),
	})
}

func fromRecord(r sheet.Record) *Medication {
	return &Medication{
		Name:         Schema.Get(r, "name"),
		Strength:     Schema.Get(r, "strength"),
		Form:         Schema.Get(r, "form"),
		Quantity:     Schema.Int(r, "quantity"),
		ReorderLevel: Schema.Int(r, "reorder_level"),
		LastOrdered:  Schema.Get(r, "last_ordered_date"),
		InStock:      strings.EqualFold(Schema.Get(r, "in_stock"), "YES"),
		row:          r.Row,
		cells:        r.Raw,
	}
}
