package codec

import (
	"errors"
	"fmt"
	"strings"

	"weather-workbench/internal/records"
)

// ErrCellCount is wrapped by a ParseError for a table row without exactly seven cells
var ErrCellCount = errors.New("row must have 7 cells")

// FromTable builds a record set from editor rows of seven cells each.
// Cells are trimmed before parsing. Validity is not checked here.
func FromTable(rows [][]string) (records.RecordSet, error) {
	var set records.RecordSet
	for i, row := range rows {
		if len(row) != FieldCount {
			return records.RecordSet{}, &ParseError{
				Record: i,
				Field:  "row",
				Token:  strings.Join(row, " "),
				Err:    fmt.Errorf("got %d cells: %w", len(row), ErrCellCount),
			}
		}
		cells := make([]string, FieldCount)
		for j, cell := range row {
			cells[j] = strings.TrimSpace(cell)
		}
		rec, err := parseRecord(i, cells)
		if err != nil {
			return records.RecordSet{}, err
		}
		set.Append(rec)
	}
	return set, nil
}

// ToTable renders the set as editor rows, the inverse of FromTable
func ToTable(set records.RecordSet) [][]string {
	rows := make([][]string, set.Len())
	for i := 0; i < set.Len(); i++ {
		rows[i] = formatRecord(set.At(i))
	}
	return rows
}
