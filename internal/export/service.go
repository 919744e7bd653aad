// Package export renders stored filing records as a spreadsheet download.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/filings-tracker/internal/entity"
)

// SheetName is the worksheet holding the records.
const SheetName = "Results"

// Headers are the workbook columns, in order.
var Headers = []string{
	"公司代號",
	"內控聲明書簽署日期",
	"分類結果",
	"罰款金額",
	"檔案上傳日期",
}

// RecordLister is the read side of the record store.
type RecordLister interface {
	List(ctx context.Context) ([]entity.StoredRecord, error)
}

// Service produces XLSX bytes for downloads.
type Service struct {
	records RecordLister
	logger  *slog.Logger
}

func NewService(records RecordLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// WorkbookXLSX returns every stored record as an XLSX workbook. It does not
// look at any session.
func (s *Service) WorkbookXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, r := range recs {
		row := []any{r.FilerCode, r.FilingDate, r.Category, r.FinedAmount, r.UploadDate}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 12) // filer code
	_ = f.SetColWidth(SheetName, "B", "B", 22) // filing date
	_ = f.SetColWidth(SheetName, "C", "C", 18) // category
	_ = f.SetColWidth(SheetName, "D", "D", 24) // fine
	_ = f.SetColWidth(SheetName, "E", "E", 18) // upload date

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
