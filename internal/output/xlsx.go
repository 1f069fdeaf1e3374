package output

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
)

// XLSXSheet is the single sheet of the results workbook.
const XLSXSheet = "OCR Results"

// XLSXSink mirrors the results table into a workbook, saved after every row.
type XLSXSink struct {
	path   string
	f      *excelize.File
	row    int
	logger *slog.Logger
}

// NewXLSXSink creates the workbook at path. A path without an extension gets
// the workbook one, since the writer picks its format from it.
func NewXLSXSink(path string, logger *slog.Logger) (*XLSXSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if filepath.Ext(path) == "" {
		path += constants.ResultsWorkbookExt
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range CSVHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(XLSXSheet, cell, h)
	}
	_ = f.SetColWidth(XLSXSheet, "A", "A", 12) // index
	_ = f.SetColWidth(XLSXSheet, "B", "B", 20) // timestamp
	_ = f.SetColWidth(XLSXSheet, "C", "C", 48) // source
	_ = f.SetColWidth(XLSXSheet, "D", "D", 80) // text

	s := &XLSXSink{path: path, f: f, row: 2, logger: logger}
	if err := f.SaveAs(path); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return s, nil
}

func (s *XLSXSink) Path() string { return s.path }

func (s *XLSXSink) Write(_ context.Context, rec entity.Record) error {
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, s.row)
		_ = s.f.SetCellValue(XLSXSheet, cell, v)
	}
	write(1, rec.Seq)
	write(2, rec.ProcessedAt.Format(constants.RecordTimestamp))
	write(3, rec.Source)
	write(4, rec.Text)

	if err := s.f.SaveAs(s.path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	s.row++
	s.logger.Debug("export.xlsx.row", "seq", rec.Seq, "path", s.path)
	return nil
}

func (s *XLSXSink) Close() error {
	return s.f.Close()
}
