// Package job holds the in-memory state of document processing jobs: the
// per-job record mutated by its worker and the process-wide store polled by
// the serving layer.
package job

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kwalker7631/kyo-qa-tool/constants"
	"github.com/kwalker7631/kyo-qa-tool/internal/extract"
)

// Outcome is the per-document classification of a processing result.
type Outcome struct {
	Filename string                  `json:"filename"`
	Status   constants.OutcomeStatus `json:"status"`
	Data     *extract.FieldRecord    `json:"data,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
}

// Record tracks one submitted batch from submission to completion. It is
// mutated only by the worker that owns the job; polling readers take
// snapshots. The log is a bounded ring: once maxLog entries accumulate the
// oldest are dropped and counted, so a chatty job cannot grow without bound.
type Record struct {
	id uuid.UUID

	mu         sync.Mutex
	status     constants.JobStatus
	total      int
	processed  int
	log        []string
	logDropped int
	maxLog     int
	outcomes   []Outcome
	reportPath string
}

func newRecord(id uuid.UUID, total, maxLog int) *Record {
	return &Record{
		id:     id,
		status: constants.JobStatusQueued,
		total:  total,
		maxLog: maxLog,
	}
}

// ID returns the job's immutable identity.
func (r *Record) ID() uuid.UUID { return r.id }

// SetStatus transitions the job lifecycle state.
func (r *Record) SetStatus(s constants.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// SetTotal revises the document count after archive expansion.
func (r *Record) SetTotal(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = n
}

// AppendLog appends a human-readable event, evicting the oldest entry once
// the ring is full.
func (r *Record) AppendLog(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxLog > 0 && len(r.log) >= r.maxLog {
		r.log = r.log[1:]
		r.logDropped++
	}
	r.log = append(r.log, msg)
}

// RecordOutcome appends a per-document result and counts the document as
// processed, whatever its outcome. Progress therefore always reaches 100%
// once every resolved document has been attempted.
func (r *Record) RecordOutcome(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.processed++
}

// SetReportPath records the generated report artifact location.
func (r *Record) SetReportPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reportPath = path
}

// Snapshot is a point-in-time copy of a record, safe to read without
// holding the record's lock.
type Snapshot struct {
	ID         uuid.UUID           `json:"id"`
	Status     constants.JobStatus `json:"status"`
	Total      int                 `json:"total_documents"`
	Processed  int                 `json:"processed_documents"`
	Progress   int                 `json:"progress"`
	Log        []string            `json:"log"`
	LogDropped int                 `json:"log_dropped,omitempty"`
	Outcomes   []Outcome           `json:"outcomes"`
	ReportPath string              `json:"report_path,omitempty"`
}

// Snapshot copies the record's current state.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		ID:         r.id,
		Status:     r.status,
		Total:      r.total,
		Processed:  r.processed,
		Progress:   progress(r.processed, r.total),
		Log:        append([]string(nil), r.log...),
		LogDropped: r.logDropped,
		Outcomes:   append([]Outcome(nil), r.outcomes...),
		ReportPath: r.reportPath,
	}
	return snap
}

// SuccessRecords returns the field records of all successful outcomes, in
// processing order, for report generation.
func (r *Record) SuccessRecords() []extract.FieldRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []extract.FieldRecord
	for _, o := range r.outcomes {
		if o.Status == constants.OutcomeSuccess && o.Data != nil {
			out = append(out, *o.Data)
		}
	}
	return out
}

// progress is the derived integer percentage, 0 when total is unknown.
func progress(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return processed * 100 / total
}
