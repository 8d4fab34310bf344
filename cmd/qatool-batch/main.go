package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/archive"
	"github.com/kwalker7631/kyo-qa-tool/internal/core"
	"github.com/kwalker7631/kyo-qa-tool/internal/export"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/ocr"
	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir          = flag.String("dir", "", "directory to scan for PDF/ZIP files")
		out          = flag.String("out", "processed_output", "output directory for the XLSX report")
		patternsPath = flag.String("patterns", "user_defined_patterns.json", "pattern store file")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	paths := flag.Args()
	if *dir == "" && len(paths) == 0 {
		printError("Error: pass files as arguments or use --dir\n")
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *dir != "" {
		found, err := scanDir(*dir)
		if err != nil {
			printError("Error: scanning %s: %v\n", *dir, err)
			os.Exit(1)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		printError("Error: no PDF or ZIP files to process\n")
		os.Exit(1)
	}

	ctx := context.Background()

	patternStore, err := patterns.NewStore(*patternsPath, logger)
	if err != nil {
		printError("Error: opening pattern store: %v\n", err)
		os.Exit(1)
	}

	resolver := archive.NewResolver("", logger)
	extractor := ocr.NewExtractor(ocr.Config{}, logger)
	reports := export.NewService(*out, logger)
	store := job.NewStore(0, logger)

	proc := core.NewProcessor(logger, resolver, extractor, patternStore, reports, store, nil)

	rec := store.Create(len(paths))
	proc.Run(ctx, rec.ID(), paths)

	snap := rec.Snapshot()
	success, review, failed := 0, 0, 0
	for _, o := range snap.Outcomes {
		switch o.Status {
		case constants.OutcomeSuccess:
			success++
		case constants.OutcomeReview:
			review++
		default:
			failed++
		}
	}
	fmt.Printf("processed %d documents: %d ok, %d for review, %d failed\n",
		snap.Processed, success, review, failed)
	if snap.ReportPath != "" {
		fmt.Printf("report: %s\n", snap.ReportPath)
	}
	if success == 0 {
		os.Exit(1)
	}
}

// scanDir collects processable files directly under root, skipping hidden
// entries.
func scanDir(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path != root && base[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if base[0] == '.' {
			return nil
		}
		if constants.IsDocument(path) || constants.IsArchive(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
