// Package metrics exposes Prometheus instrumentation for the pipeline.
// Registration happens once at init; the host decides whether and where to
// serve the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsProcessed counts completed pipeline runs by statement type
	// and review outcome.
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmtpipe_documents_processed_total",
		Help: "Completed pipeline runs by statement type and review outcome.",
	}, []string{"statement_type", "outcome"})

	// EngineFailures counts extraction adapters that failed or timed out.
	EngineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmtpipe_engine_failures_total",
		Help: "Extraction adapter invocations that produced no usable output.",
	}, []string{"engine"})

	// RuleFailures counts validation rules that evaluated to failed.
	RuleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stmtpipe_rule_failures_total",
		Help: "Validation and reconciliation rule failures by severity.",
	}, []string{"rule", "severity"})

	// UnmatchedLineItems counts extracted lines that mapped to no account.
	UnmatchedLineItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stmtpipe_unmatched_line_items_total",
		Help: "Extracted line items retained without a chart-of-accounts match.",
	})

	// ExtractionDuration observes wall-clock time per adapter invocation.
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stmtpipe_extraction_duration_seconds",
		Help:    "Wall-clock duration of extraction adapter invocations.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"engine"})
)
