// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intake_submission_stage_duration_seconds",
			Help: "Duration of each submission pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	SubmissionWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submission_warnings_total",
			Help: "Non-fatal stage failures attached to successful submissions",
		},
		[]string{"stage"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_active_sessions",
			Help: "Number of wizard sessions currently held in the session store",
		},
	)
)
