package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.JobSubmitted()
	c.JobSubmitted()
	c.JobStarted()
	c.JobFinished()
	c.DocumentProcessed("success", 0.2)
	c.DocumentProcessed("success", 0.4)
	c.DocumentProcessed("review", 1.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsCompleted))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.jobsInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.documentsProcessed.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.documentsProcessed.WithLabelValues("review")))
}

func TestCollectorRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "qa_jobs_submitted_total")
	assert.Contains(t, names, "qa_document_seconds")
}
