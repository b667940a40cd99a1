package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	trustComputationsTotal *prometheus.CounterVec
	trustDuration          prometheus.Histogram
	trustScore             prometheus.Histogram

	moderationsTotal   *prometheus.CounterVec
	moderationDuration prometheus.Histogram
	moderationOverall  prometheus.Histogram

	staleWritesTotal   *prometheus.CounterVec
	failuresTotal      *prometheus.CounterVec
	notifyFailureTotal *prometheus.CounterVec

	httpClientErrorsTotal *prometheus.CounterVec
	eventsConsumedTotal   *prometheus.CounterVec
)

var scoreBuckets = []float64{10, 25, 40, 50, 60, 70, 75, 80, 90, 100}

// Init registers all scoring metrics with the default registry. Safe to call
// more than once.
func Init() {
	metricsOnce.Do(func() {
		trustComputationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trust_score_computations_total",
				Help: "Trust score computations by resulting tier",
			},
			[]string{"tier"},
		)
		trustDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trust_score_duration_seconds",
				Help:    "Duration of trust score computations including history reads and persistence",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		)
		trustScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trust_score_value",
				Help:    "Distribution of computed trust scores (0-100)",
				Buckets: scoreBuckets,
			},
		)

		moderationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_moderations_total",
				Help: "Campaign moderation runs by decision",
			},
			[]string{"decision"},
		)
		moderationDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campaign_moderation_duration_seconds",
				Help:    "Duration of campaign moderation runs including persistence",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		)
		moderationOverall = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campaign_moderation_overall",
				Help:    "Distribution of overall moderation scores (0-100)",
				Buckets: scoreBuckets,
			},
		)

		staleWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_stale_writes_total",
				Help: "Results whose projection was skipped because a newer result was already stored",
			},
			[]string{"operation"},
		)
		failuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_failures_total",
				Help: "Failed engine invocations by operation and error kind",
			},
			[]string{"operation", "kind"},
		)
		notifyFailureTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_notification_failures_total",
				Help: "Notification dispatch failures by channel",
			},
			[]string{"channel"},
		)

		httpClientErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_http_client_errors_total",
				Help: "Outbound HTTP errors by error type",
			},
			[]string{"error_type"},
		)
		eventsConsumedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_events_consumed_total",
				Help: "Domain events consumed by the worker by topic and outcome",
			},
			[]string{"topic", "outcome"},
		)
	})
}

// Recorder adapts the package-level collectors to ports.MetricsRecorder.
type Recorder struct{}

func NewRecorder() Recorder {
	Init()
	return Recorder{}
}

func (Recorder) RecordTrustComputation(tier domain.TrustTier, score float64, duration time.Duration, applied bool) {
	if trustComputationsTotal == nil {
		return
	}
	trustComputationsTotal.WithLabelValues(string(tier)).Inc()
	trustDuration.Observe(duration.Seconds())
	trustScore.Observe(score)
	if !applied {
		staleWritesTotal.WithLabelValues("trust").Inc()
	}
}

func (Recorder) RecordModeration(decision domain.ModerationDecision, overall float64, duration time.Duration, applied bool) {
	if moderationsTotal == nil {
		return
	}
	moderationsTotal.WithLabelValues(string(decision)).Inc()
	moderationDuration.Observe(duration.Seconds())
	moderationOverall.Observe(overall)
	if !applied {
		staleWritesTotal.WithLabelValues("moderation").Inc()
	}
}

func (Recorder) RecordFailure(operation, kind string) {
	if failuresTotal != nil {
		failuresTotal.WithLabelValues(operation, kind).Inc()
	}
}

func (Recorder) RecordNotificationFailure(channel string) {
	if notifyFailureTotal != nil {
		notifyFailureTotal.WithLabelValues(channel).Inc()
	}
}

// RecordHTTPClientError records an outbound HTTP error.
// errorType: "timeout", "auth", "rate_limit", "server_error", "connection", "http_error", "circuit_open"
func RecordHTTPClientError(errorType string) {
	if httpClientErrorsTotal != nil {
		httpClientErrorsTotal.WithLabelValues(errorType).Inc()
	}
}

// RecordEventConsumed records the outcome of handling one consumed message.
// outcome: "processed", "debounced", "skipped", "error"
func RecordEventConsumed(topic, outcome string) {
	if eventsConsumedTotal != nil {
		eventsConsumedTotal.WithLabelValues(topic, outcome).Inc()
	}
}
