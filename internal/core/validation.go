package core

// validation.go gates CSV rows before they are sent to the CRM.
//
// A row passes when every required column is present and non-blank after
// trimming. Nothing else about the values is checked; the CRM is the judge
// of whether a type or parent object is acceptable.

import (
	"fmt"
	"strings"
)

// CsvRow maps header names (case-sensitive) to cell values for one data line.
type CsvRow map[string]string

// Column names read from each row.
const (
	ColumnObject     = "object"
	ColumnName       = "name"
	ColumnListValues = "listValues"
	ColumnType       = "type"
)

// DefaultRequiredFields is the required column set, in reporting order.
var DefaultRequiredFields = []string{ColumnObject, ColumnName, ColumnListValues, ColumnType}

// FirstDataRow is the row number of the first line after the header.
const FirstDataRow = 2

// RowValidator checks rows for the presence of required columns.
type RowValidator struct {
	required []string
}

// NewRowValidator creates a validator for the given required columns.
// Missing columns are always reported in the order given here.
// An empty list selects DefaultRequiredFields.
func NewRowValidator(required []string) *RowValidator {
	if len(required) == 0 {
		required = DefaultRequiredFields
	}
	fields := make([]string, len(required))
	copy(fields, required)
	return &RowValidator{required: fields}
}

// Validate reports whether row has every required column filled in.
// On failure the message names rowNumber and the missing columns, e.g.
//
//	Row 3: Missing fields ['listValues', 'type']
func (v *RowValidator) Validate(row CsvRow, rowNumber int) (bool, string) {
	missing := v.Missing(row)
	if len(missing) == 0 {
		return true, ""
	}
	return false, fmt.Sprintf("Row %d: Missing fields %s", rowNumber, formatFieldList(missing))
}

// Missing returns the required columns that are absent or blank in row.
func (v *RowValidator) Missing(row CsvRow) []string {
	var missing []string
	for _, field := range v.required {
		if strings.TrimSpace(row[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// formatFieldList renders names as a bracketed, single-quoted list.
func formatFieldList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
