package job

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Store is the process-wide registry of job records. Records are never
// evicted; lifetime is the process lifetime. That is acceptable only for a
// single long-running local instance, which is this tool's deployment shape.
type Store struct {
	logger *slog.Logger
	maxLog int

	mu   sync.RWMutex
	jobs map[uuid.UUID]*Record
}

func NewStore(maxLog int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		maxLog: maxLog,
		jobs:   make(map[uuid.UUID]*Record),
	}
}

// Create registers a new queued job for the given number of submitted paths
// and returns its record. Job identities are never reused.
func (s *Store) Create(totalPaths int) *Record {
	id := uuid.New()
	rec := newRecord(id, totalPaths, s.maxLog)
	rec.AppendLog(fmt.Sprintf("Job %s created with %d files.", id, totalPaths))

	s.mu.Lock()
	s.jobs[id] = rec
	s.mu.Unlock()

	s.logger.Info("job.created", "job_id", id, "files", totalPaths)
	return rec
}

// Get returns the live record for a job id. The second return is false for
// unknown ids; a garbage id is indistinguishable from a never-created one.
func (s *Store) Get(id uuid.UUID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	return rec, ok
}

// Snapshot returns a point-in-time copy of a job's state for polling
// callers.
func (s *Store) Snapshot(id uuid.UUID) (Snapshot, bool) {
	rec, ok := s.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	return rec.Snapshot(), true
}

// Len reports the number of registered jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
