package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one submitted batch handed to the worker pool.
type Job struct {
	JobID       uuid.UUID
	Paths       []string
	SubmittedAt time.Time
}

// Launcher accepts batches and hands them to workers running independently
// of the caller.
type Launcher interface {
	Submit(ctx context.Context, paths []string) (uuid.UUID, error)
	Shutdown(ctx context.Context)
}
