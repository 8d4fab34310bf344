// Package export persists extraction results as an XLSX report.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kwalker7631/kyo-qa-tool/internal/extract"
)

const sheet = "Results"

var headers = []string{"File Name", "Models", "Author", "QA Numbers"}

// Service writes timestamped QA report workbooks into the output directory.
type Service struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(outputDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if outputDir == "" {
		outputDir = "processed_output"
	}
	return &Service{outputDir: outputDir, logger: logger, now: time.Now}
}

// WriteReport renders one row per field record and saves the workbook as
// KYO_QA_Report_<timestamp>.xlsx. Returns the artifact path.
func (s *Service) WriteReport(ctx context.Context, records []extract.FieldRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("no records to report")
	}
	start := time.Now()

	f, err := buildWorkbook(records)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}
	name := fmt.Sprintf("KYO_QA_Report_%s.xlsx", s.now().Format("20060102_150405"))
	path := filepath.Join(s.outputDir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx save: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"path", path,
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

// WriteTo streams the workbook to w instead of the output directory, for
// callers serving the report over HTTP.
func (s *Service) WriteTo(ctx context.Context, records []extract.FieldRecord, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no records to report")
	}
	f, err := buildWorkbook(records)
	if err != nil {
		return 0, err
	}
	return f.WriteTo(w)
}

func buildWorkbook(records []extract.FieldRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, rec.Filename)
		write(2, rec.Models)
		write(3, rec.Author)
		write(4, rec.QANumbers)
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 48) // filename
	_ = f.SetColWidth(sheet, "B", "B", 40) // models
	_ = f.SetColWidth(sheet, "C", "C", 24) // author
	_ = f.SetColWidth(sheet, "D", "D", 28) // QA numbers

	return f, nil
}
