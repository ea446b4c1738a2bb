package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lumenworks/askdoc/internal/models"
)

// extractExcel flattens workbook rows into units with 1-based row locators.
// Rows are numbered continuously across sheets; the sheet name is prefixed to
// each row so multi-sheet workbooks stay attributable.
func extractExcel(content []byte) ([]Unit, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var units []Unit
	rowNum := 0
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			text := strings.TrimSpace(strings.Join(row, " | "))
			if text == "" {
				continue
			}
			rowNum++
			if len(sheets) > 1 {
				text = sheet + ": " + text
			}
			units = append(units, Unit{Locator: models.RowLocator(rowNum), Text: text})
		}
	}
	return units, nil
}
