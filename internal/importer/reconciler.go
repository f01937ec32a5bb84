// Package importer turns parsed customer rows into candidate customer
// records, linking sales reps and flagging probable duplicates.
package importer

import (
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"dealercrm/internal/charset"
	"dealercrm/internal/csv"
	"dealercrm/internal/models"
)

// headerNames are name column values that mark a header line rather than
// a customer.
var headerNames = map[string]bool{
	"お客様名": true,
	"氏名":   true,
	"名前":   true,
	"顧客名":  true,
}

var prefecturePattern = regexp.MustCompile(`^.+?[都道府県]`)

type Options struct {
	KnownUsers []models.User
	Existing   []models.Customer
	// Columns defaults to csv.DefaultColumns when left zero.
	Columns csv.ColumnMap
	Now     func() time.Time
	NewID   func() string
}

func (o Options) withDefaults() Options {
	if o.Columns == (csv.ColumnMap{}) {
		o.Columns = csv.DefaultColumns
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

type Result struct {
	Customers         []models.Customer         `json:"customers"`
	Errors            []string                  `json:"errors"`
	DuplicateWarnings []models.DuplicateWarning `json:"duplicateWarnings"`
}

// Reconcile converts rows into customers. Bad rows are skipped and
// described in Result.Errors; the remaining rows are always returned.
func Reconcile(rows iter.Seq2[csv.Row, error], opts Options) Result {
	opts = opts.withDefaults()
	now := opts.Now()

	existing := make([]existingCustomer, 0, len(opts.Existing))
	for _, c := range opts.Existing {
		existing = append(existing, existingCustomer{Customer: c, prefecture: ExtractPrefecture(c.Address)})
	}

	var res Result
	for row, err := range rows {
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", row.Line, err))
			continue
		}
		if blank(row.Fields) {
			continue
		}

		c := csv.RowToCustomer(row.Fields, opts.Columns, now)
		name := strings.TrimSpace(c.Name)
		if name == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: customer name is empty", row.Line))
			continue
		}
		if headerNames[name] {
			continue
		}

		c.ID = opts.NewID()
		if id, name, ok := ResolveSalesRep(c.AssignedSalesRepName, opts.KnownUsers); ok {
			c.AssignedSalesRepID = id
			c.AssignedSalesRepName = name
		}

		if w, ok := findDuplicate(row.Line, c, existing); ok {
			res.DuplicateWarnings = append(res.DuplicateWarnings, w)
		}
		res.Customers = append(res.Customers, c)
	}

	if len(res.Customers) == 0 && len(res.Errors) == 0 {
		res.Errors = append(res.Errors, "no customer rows found; check that the file is a customer CSV with the expected columns")
	}
	return res
}

// ImportBytes decodes raw file bytes and reconciles the rows they hold.
func ImportBytes(data []byte, enc charset.Encoding, opts Options) Result {
	return Reconcile(csv.Rows(charset.Decode(data, enc)), opts)
}

// ImportXLSX reconciles the first sheet of a spreadsheet.
func ImportXLSX(r io.Reader, opts Options) (Result, error) {
	rows, err := csv.XLSXRows(r)
	if err != nil {
		return Result{}, err
	}
	return Reconcile(csv.SliceRows(rows), opts), nil
}

// ResolveSalesRep links a sales rep display name to a known user. An exact
// name match wins; otherwise the first user whose name contains, or is
// contained in, the given name is used.
func ResolveSalesRep(name string, users []models.User) (id, canonical string, ok bool) {
	if name == "" {
		return "", "", false
	}
	for _, u := range users {
		if u.Name == name {
			return u.ID, u.Name, true
		}
	}
	for _, u := range users {
		if u.Name == "" {
			continue
		}
		if strings.Contains(u.Name, name) || strings.Contains(name, u.Name) {
			return u.ID, u.Name, true
		}
	}
	return "", "", false
}

// ExtractPrefecture returns the leading prefecture of an address, or ""
// when the address does not start with one.
func ExtractPrefecture(address string) string {
	return prefecturePattern.FindString(strings.TrimSpace(address))
}

type existingCustomer struct {
	models.Customer
	prefecture string
}

func findDuplicate(line int, c models.Customer, existing []existingCustomer) (models.DuplicateWarning, bool) {
	name := strings.TrimSpace(c.Name)
	prefecture := ExtractPrefecture(c.Address)
	for _, e := range existing {
		if strings.TrimSpace(e.Name) == name && e.prefecture == prefecture {
			return models.DuplicateWarning{
				Row:                  line,
				Name:                 c.Name,
				Prefecture:           prefecture,
				ExistingCustomerID:   e.ID,
				ExistingCustomerName: e.Name,
			}, true
		}
	}
	return models.DuplicateWarning{}, false
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
