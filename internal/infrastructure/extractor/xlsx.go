package extractor

import (
	"bytes"
	"errors"

	"github.com/xuri/excelize/v2"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

// extractXLSX reads the first sheet as a header row plus data rows, the same
// shape csv extraction handles.
func extractXLSX(raw []byte) (*ports.Extraction, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract xlsx", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract xlsx",
			errors.New("workbook has no sheets"))
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract xlsx", err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "extract xlsx",
			errors.New("sheet needs a header row and at least one data row"))
	}

	return recordsFromTable(rows[0], rows[1:])
}
