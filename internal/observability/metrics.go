// Package observability exposes Prometheus metrics for the processing
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks job and document throughput.
type Collector struct {
	jobsSubmitted prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsInFlight  prometheus.Gauge

	documentsProcessed *prometheus.CounterVec
	documentLatency    prometheus.Histogram
}

// NewCollector builds and registers the pipeline metrics on reg. Pass a
// fresh registry in tests to avoid duplicate registration.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qa_jobs_submitted_total",
			Help: "Total number of processing jobs submitted",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qa_jobs_completed_total",
			Help: "Total number of processing jobs that reached a terminal state",
		}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qa_jobs_in_flight",
			Help: "Current number of jobs being processed",
		}),
		documentsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qa_documents_processed_total",
			Help: "Total number of documents processed, by outcome",
		}, []string{"outcome"}),
		documentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qa_document_seconds",
			Help:    "Per-document processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.jobsSubmitted,
		c.jobsCompleted,
		c.jobsInFlight,
		c.documentsProcessed,
		c.documentLatency,
	)
	return c
}

// JobSubmitted records a job entering the queue.
func (c *Collector) JobSubmitted() {
	c.jobsSubmitted.Inc()
}

// JobStarted records a worker picking up a job.
func (c *Collector) JobStarted() {
	c.jobsInFlight.Inc()
}

// JobFinished records a job reaching a terminal state.
func (c *Collector) JobFinished() {
	c.jobsInFlight.Dec()
	c.jobsCompleted.Inc()
}

// DocumentProcessed records one document outcome and its latency.
func (c *Collector) DocumentProcessed(outcome string, seconds float64) {
	c.documentsProcessed.WithLabelValues(outcome).Inc()
	c.documentLatency.Observe(seconds)
}
