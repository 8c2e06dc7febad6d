// Package metrics defines the Prometheus metrics exported by meetcost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Email processing outcomes.
const (
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics holds all Prometheus metrics for the pipeline and feedback server.
type Metrics struct {
	// Pipeline metrics
	EmailsProcessedTotal *prometheus.CounterVec
	BatchSeconds         prometheus.Histogram
	MeetingCostTotal     prometheus.Counter
	MeetingCost          prometheus.Histogram
	ParticipantsTotal    *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec

	// Feedback metrics
	FeedbackRequestsTotal    *prometheus.CounterVec
	FeedbackSubmissionsTotal *prometheus.CounterVec
}

// New registers a new set of metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EmailsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcost_emails_processed_total",
				Help: "Emails processed by outcome",
			},
			[]string{"outcome"},
		),
		BatchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meetcost_batch_seconds",
				Help:    "Time to process one mailbox batch",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
		),
		MeetingCostTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meetcost_cost_total",
				Help: "Sum of all recorded meeting costs",
			},
		),
		MeetingCost: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meetcost_meeting_cost",
				Help:    "Cost of recorded meetings",
				Buckets: prometheus.ExponentialBuckets(100, 2, 12),
			},
		),
		ParticipantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcost_participants_resolved_total",
				Help: "Participants resolved by resolution status",
			},
			[]string{"status"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcost_notifications_total",
				Help: "Cost summary emails by result",
			},
			[]string{"result"},
		),
		FeedbackRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcost_feedback_requests_total",
				Help: "Feedback request emails by result",
			},
			[]string{"result"},
		),
		FeedbackSubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetcost_feedback_submissions_total",
				Help: "Feedback submissions by result",
			},
			[]string{"result"},
		),
	}
}
