// Package core orchestrates document processing: resolving submitted paths,
// extracting text and fields per document, and aggregating results into a
// report.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/archive"
	"github.com/kwalker7631/kyo-qa-tool/internal/common"
	"github.com/kwalker7631/kyo-qa-tool/internal/extract"
	"github.com/kwalker7631/kyo-qa-tool/internal/job"
	"github.com/kwalker7631/kyo-qa-tool/internal/observability"
	"github.com/kwalker7631/kyo-qa-tool/internal/patterns"
)

// TextExtractor turns a document into text, returning a ReviewError for
// documents a human must look at (encrypted, no extractable text).
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ReportWriter persists extracted records as a tabular artifact and returns
// its location.
type ReportWriter interface {
	WriteReport(ctx context.Context, records []extract.FieldRecord) (string, error)
}

// RuleSource supplies the current compiled extraction rules.
type RuleSource interface {
	Ruleset() patterns.Ruleset
}

// Resolver expands archives in a submitted path list.
type Resolver interface {
	Resolve(ctx context.Context, paths []string) ([]string, []archive.Note)
}

// Processor runs one job at a time: resolve, extract, match, record, report.
type Processor struct {
	logger    *slog.Logger
	resolver  Resolver
	extractor TextExtractor
	rules     RuleSource
	reports   ReportWriter
	store     *job.Store
	metrics   *observability.Collector
}

func NewProcessor(
	logger *slog.Logger,
	resolver Resolver,
	extractor TextExtractor,
	rules RuleSource,
	reports ReportWriter,
	store *job.Store,
	metrics *observability.Collector,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		resolver:  resolver,
		extractor: extractor,
		rules:     rules,
		reports:   reports,
		store:     store,
		metrics:   metrics,
	}
}

// Run processes a job to completion. Per-document failures are downgraded
// to outcomes; nothing here propagates an error to the submitter, so the
// only early exit is a missing job record (nothing to report into).
func (p *Processor) Run(ctx context.Context, jobID uuid.UUID, paths []string) {
	rec, ok := p.store.Get(jobID)
	if !ok {
		p.logger.Error("processor.job.missing", "job_id", jobID)
		return
	}

	rec.SetStatus(constants.JobStatusProcessing)
	p.progress(rec, "Processing job started.", false)

	docs, notes := p.resolver.Resolve(ctx, paths)
	for _, n := range notes {
		p.progress(rec, n.Message, n.Err)
	}
	rec.SetTotal(len(docs))

	for _, path := range docs {
		filename := filepath.Base(path)
		p.progress(rec, fmt.Sprintf("Starting to process: %s", filename), false)

		start := time.Now()
		outcome := p.processDocument(ctx, path, filename)
		rec.RecordOutcome(outcome)
		if p.metrics != nil {
			p.metrics.DocumentProcessed(string(outcome.Status), time.Since(start).Seconds())
		}

		switch outcome.Status {
		case constants.OutcomeSuccess:
			p.progress(rec, fmt.Sprintf("Successfully processed: %s", filename), false)
		case constants.OutcomeReview:
			p.progress(rec, fmt.Sprintf("File needs review %s: %s", filename, outcome.Reason), true)
		case constants.OutcomeError:
			p.progress(rec, fmt.Sprintf("An unexpected error occurred with %s: %s", filename, outcome.Reason), true)
		}
		p.progress(rec, fmt.Sprintf("Finished with %s.", filename), false)
	}

	p.writeReport(ctx, rec)

	rec.SetStatus(constants.JobStatusComplete)
	p.progress(rec, "Processing job finished.", false)
}

// processDocument classifies one document into a success/review/error
// outcome. Review conditions are signaled by the extractor as a tagged
// error kind; everything else unexpected becomes an error outcome.
func (p *Processor) processDocument(ctx context.Context, path, filename string) job.Outcome {
	text, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		status := constants.OutcomeError
		if common.IsReview(err) {
			status = constants.OutcomeReview
		}
		return job.Outcome{Filename: filename, Status: status, Reason: err.Error()}
	}

	fields := extract.Extract(text, filename, p.rules.Ruleset(), p.logger)
	fields.Filename = filename
	return job.Outcome{Filename: filename, Status: constants.OutcomeSuccess, Data: &fields}
}

// writeReport generates the report when at least one document succeeded.
// Report failure is a job log event, never a job failure.
func (p *Processor) writeReport(ctx context.Context, rec *job.Record) {
	records := rec.SuccessRecords()
	if len(records) == 0 {
		p.progress(rec, "No files were processed successfully, skipping Excel report generation.", false)
		return
	}
	path, err := p.reports.WriteReport(ctx, records)
	if err != nil {
		p.progress(rec, fmt.Sprintf("Failed to create Excel report: %v", err), true)
		return
	}
	rec.SetReportPath(path)
	p.progress(rec, fmt.Sprintf("Excel report created at: %s", path), false)
}

// progress appends a job log event and mirrors it to the process log.
func (p *Processor) progress(rec *job.Record, msg string, isError bool) {
	rec.AppendLog(msg)
	if isError {
		p.logger.Error("processor.event", "job_id", rec.ID(), "msg", msg)
	} else {
		p.logger.Info("processor.event", "job_id", rec.ID(), "msg", msg)
	}
}
