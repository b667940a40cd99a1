package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
)

// DefaultNotifyTimeout bounds one review notification.
const DefaultNotifyTimeout = 30 * time.Second

// Option configures the optional collaborators of a service.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	cache     ports.ResultCache
	publisher ports.EventPublisher
	notifier  ports.Notifier
	metrics   ports.MetricsRecorder
	rules     *domain.RuleSet
	now       func() time.Time
	newID     func() string

	notifyTimeout time.Duration
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithCache(c ports.ResultCache) Option {
	return func(o *options) { o.cache = c }
}

func WithPublisher(p ports.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithNotifier(n ports.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithNotifyTimeout bounds each notifier call. Non-positive values keep the default.
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.notifyTimeout = d
		}
	}
}

func WithMetrics(m ports.MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithRules replaces the built-in moderation rule tables.
func WithRules(rs *domain.RuleSet) Option {
	return func(o *options) { o.rules = rs }
}

// WithClock injects the time source. Tests use it to pin computedAt and the
// trailing windows of the anomaly metric.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return uuid.NewString() },
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}
	if o.rules == nil {
		o.rules = domain.DefaultRules()
	}
	return o
}

type noopMetrics struct{}

func (noopMetrics) RecordTrustComputation(domain.TrustTier, float64, time.Duration, bool)    {}
func (noopMetrics) RecordModeration(domain.ModerationDecision, float64, time.Duration, bool) {}
func (noopMetrics) RecordFailure(string, string)                                             {}
func (noopMetrics) RecordNotificationFailure(string)                                         {}
