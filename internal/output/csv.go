package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/entity"
)

// CSVHeader is always the first row of a results file.
var CSVHeader = []string{"index_image", "timestamp", "image_path", "extracted_text"}

// CSVSink writes the pipe-delimited results table for a run.
type CSVSink struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// ResultsFileName returns OCR_Results_YYYYMMDD_HHMMSS.<ext> for the run start time.
func ResultsFileName(started time.Time, ext string) string {
	return constants.ResultsFilePrefix + started.Format(constants.ResultsFileStamp) + ext
}

// NewCSVSink creates the results file in dir and writes the header.
func NewCSVSink(dir string, started time.Time) (*CSVSink, error) {
	path := filepath.Join(dir, ResultsFileName(started, constants.ResultsCSVExt))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = '|'

	s := &CSVSink{path: path, f: f, w: w}
	if err := s.writeRow(CSVHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) Path() string { return s.path }

// Write appends one row. The text column is wrapped in quotes before encoding,
// so it is always quoted on disk; the row is flushed before returning.
func (s *CSVSink) Write(_ context.Context, rec entity.Record) error {
	return s.writeRow([]string{
		strconv.Itoa(rec.Seq),
		rec.ProcessedAt.Format(constants.RecordTimestamp),
		rec.Source,
		`"` + rec.Text + `"`,
	})
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}
