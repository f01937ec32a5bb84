package csv

import (
	"fmt"
	"io"
	"strings"
	"time"

	"dealercrm/internal/models"
)

// RowToCustomer reads one row into a customer. It never fails: short rows
// are padded, a blank region is derived from the address, unparseable
// dates become now and a missing phone is filled from the mobile column.
// Free text is kept verbatim; only the status, sales rep, region and date
// columns are trimmed before they are matched. ID and sales rep linkage
// are left to the importer.
func RowToCustomer(fields []string, cols ColumnMap, now time.Time) models.Customer {
	row := Normalize(fields)
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	trimmed := func(i int) string {
		return strings.TrimSpace(get(i))
	}

	c := models.Customer{
		Name:                 get(cols.Name),
		NameKana:             get(cols.NameKana),
		PostalCode:           get(cols.PostalCode),
		Address:              get(cols.Address),
		Address2:             get(cols.Address2),
		Region:               trimmed(cols.Region),
		AssignedSalesRepName: trimmed(cols.SalesRep),
		Source:               get(cols.Source),
		Status:               ParseStatus(trimmed(cols.Status)),
		Notes:                get(cols.Notes),
		CreatedAt:            ParseDate(trimmed(cols.CreatedAt), now),
		UpdatedAt:            now,
	}

	if c.Region == "" {
		c.Region = RegionForAddress(c.Address)
	}

	phone, mobile := get(cols.Phone), get(cols.Mobile)
	if strings.TrimSpace(phone) == "" {
		c.Phone = mobile
	} else {
		c.Phone = phone
		c.Mobile = mobile
	}

	if v := trimmed(cols.ContractDate); v != "" {
		d := ParseDate(v, now)
		c.ContractDate = &d
	}

	return c
}

// CustomerToRow is the inverse of RowToCustomer for the default layout.
// Reserved columns stay empty.
func CustomerToRow(c models.Customer) []string {
	row := make([]string, ColumnCount)
	cols := DefaultColumns

	row[cols.Status] = FormatStatus(c.Status)
	row[cols.SalesRep] = c.AssignedSalesRepName
	row[cols.Name] = c.Name
	row[cols.NameKana] = c.NameKana
	row[cols.PostalCode] = c.PostalCode
	row[cols.Address] = c.Address
	row[cols.Address2] = c.Address2
	row[cols.Region] = c.Region
	row[cols.Phone] = c.Phone
	row[cols.Mobile] = c.Mobile
	row[cols.Source] = c.Source
	if c.ContractDate != nil {
		row[cols.ContractDate] = formatDate(*c.ContractDate)
	}
	row[cols.CreatedAt] = formatDate(c.CreatedAt)
	row[cols.Notes] = c.Notes
	return row
}

// WriteCustomers writes the header row and one row per customer with CRLF
// line endings. Field contents, including CR and LF, are written as they
// are inside quotes.
func WriteCustomers(w io.Writer, customers []models.Customer) error {
	if _, err := io.WriteString(w, SerializeRow(Headers, ',')); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, c := range customers {
		if _, err := io.WriteString(w, SerializeRow(CustomerToRow(c), ',')); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	return nil
}
