package core

import (
	"strings"

	"github.com/JonMunkholm/fieldsync/internal/crm"
)

// BuildPayload converts a validated row into the CRM request body.
// New fields are created visible and featured.
func BuildPayload(row CsvRow) crm.FieldPayload {
	return crm.FieldPayload{
		Parent:     strings.TrimSpace(row[ColumnObject]),
		Type:       strings.TrimSpace(row[ColumnType]),
		IsHidden:   false,
		IsFeatured: true,
		Name:       strings.TrimSpace(row[ColumnName]),
		ListValues: SplitListValues(row[ColumnListValues]),
	}
}

// SplitListValues splits a comma-separated cell into trimmed, non-blank values.
// The result is never nil so it encodes as a JSON array.
func SplitListValues(raw string) []string {
	values := make([]string, 0)
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
