// Package contacts reads uploaded contact lists into ordered row maps.
package contacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/leadpilot/leadpilot/internal/survey"
)

// Parse reads a CSV contact list. The first record is the header row and
// becomes the key set; rows whose cells are all empty are dropped. maxRows
// caps the result (0 means unlimited); extra rows are silently discarded.
func Parse(r io.Reader, maxRows int) ([]string, []survey.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("contact file is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, 0, len(header))
	for _, h := range header {
		if h = strings.TrimSpace(h); h != "" {
			columns = append(columns, h)
		}
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("contact file has no header columns")
	}

	var rows []survey.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		row := make(survey.Row, len(columns))
		empty := true
		for i, col := range columns {
			if i >= len(record) {
				break
			}
			v := strings.TrimSpace(record[i])
			row[col] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
		if maxRows > 0 && len(rows) == maxRows {
			break
		}
	}

	return columns, rows, nil
}
