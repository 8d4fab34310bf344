// Package ocr extracts text from PDF documents using external tools:
// pdftotext for embedded text, with a pdftoppm + tesseract fallback for
// scanned pages.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kwalker7631/kyo-qa-tool/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language string // default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit
}

type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractText returns the full text of a document. Embedded text is
// preferred; pages without it are rasterized and OCR'd. Encrypted documents
// and documents yielding no text at all return a ReviewError so the caller
// can route them to manual review instead of failing the batch.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	res, err := e.extract(ctx, path)
	if err != nil {
		return "", err
	}
	e.logger.Debug("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res.Text, nil
}

func (e *Extractor) extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	text, pages, warns, err := e.pdfToText(ctx, path)
	if err != nil {
		if encrypted(warns) {
			return Result{}, common.NewReviewError("Document is password protected and cannot be processed.")
		}
		return Result{}, fmt.Errorf("pdftotext: %w", err)
	}
	if strings.TrimSpace(text) != "" {
		return Result{Text: text, Pages: pages, Method: "pdf-text", Duration: time.Since(start), Warnings: warns}, nil
	}

	// No embedded text: scanned document, rasterize and OCR.
	text, pages, ocrWarns, err := e.pdfToOCR(ctx, path)
	warns = append(warns, ocrWarns...)
	if err != nil {
		return Result{}, fmt.Errorf("pdf ocr: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, common.NewReviewError("No text could be extracted from the document.")
	}
	return Result{Text: text, Pages: pages, Method: "pdf-ocr", Duration: time.Since(start), Warnings: warns}, nil
}

// encrypted sniffs pdftotext stderr output for password protection.
func encrypted(warns []string) bool {
	for _, w := range warns {
		lw := strings.ToLower(w)
		if strings.Contains(lw, "password") || strings.Contains(lw, "encrypt") {
			return true
		}
	}
	return false
}
