package constants

// JobStatus is the canonical lifecycle status for a processing job.
type JobStatus string

// Stable values (these exact strings appear in status payloads).
const (
	JobStatusQueued     JobStatus = "queued"     // created, not yet picked up
	JobStatusProcessing JobStatus = "processing" // in progress
	JobStatusComplete   JobStatus = "complete"   // terminal
	JobStatusError      JobStatus = "error"      // terminal, job-level setup failure
)

// Terminal reports whether a job status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// OutcomeStatus classifies the result of processing one document.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success" // fields extracted
	OutcomeReview  OutcomeStatus = "review"  // needs manual review
	OutcomeError   OutcomeStatus = "error"   // unexpected failure
)
