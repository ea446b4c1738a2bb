package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lumenworks/askdoc/internal/models"
)

// extractCSV flattens each data row into one unit with a 1-based row locator.
// A header row, when present, is prefixed to every row text so rows remain
// self-describing after chunking ("name: Alice | age: 30").
func extractCSV(content []byte) ([]Unit, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var header []string
	var units []Unit
	rowNum := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
		if header == nil {
			header = record
			continue
		}
		rowNum++
		units = append(units, Unit{
			Locator: models.RowLocator(rowNum),
			Text:    joinRow(header, record),
		})
	}
	// A single-line file has no data rows; treat the header itself as content.
	if len(units) == 0 && len(header) > 0 {
		return []Unit{{Locator: models.RowLocator(1), Text: strings.Join(header, " | ")}}, nil
	}
	return units, nil
}

// joinRow pairs header names with values where available.
func joinRow(header, record []string) string {
	parts := make([]string, 0, len(record))
	for i, v := range record {
		v = strings.TrimSpace(v)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			parts = append(parts, strings.TrimSpace(header[i])+": "+v)
		} else {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}
