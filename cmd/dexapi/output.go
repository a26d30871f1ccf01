package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// row is implemented by every models row type.
type row interface {
	Values() []string
}

// write prints rows as CSV with a header line, or as a JSON array. An empty
// result still prints the header, or [].
func write[T row](w io.Writer, format string, columns []string, rows []T) error {
	if format == "json" {
		if rows == nil {
			rows = []T{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
