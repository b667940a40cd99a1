// Package bootstrap wires configuration into storage, adapters and the two
// scoring engines. Every binary under cmd/ starts from Build.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/cache"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/events"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/exporter"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/handler"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/httpclient"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/metrics"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/notifier"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/repository"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/config"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/ports"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/service"
)

// Store is the full persistence surface both engines and the audit feed use.
type Store interface {
	service.TrustStore
	service.ModerationStore
	ports.AuditReader
}

// Runtime holds the wired engines and the resources that must be released on exit.
type Runtime struct {
	Config     config.Config
	Logger     *zap.Logger
	Store      Store
	Trust      *service.TrustService
	Moderation *service.ModerationService
	Audit      *exporter.AuditExporter
	// Debouncer is nil when Redis is not configured.
	Debouncer ports.Debouncer

	closers []func()
}

// Build connects storage and optional infrastructure, then constructs the engines.
// On error every resource opened so far is released.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *Runtime, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	if err = rt.openStore(ctx); err != nil {
		return nil, err
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load moderation rules: %w", err)
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(metrics.NewRecorder()),
		service.WithRules(rules),
	}

	if cfg.RedisURL != "" {
		client, cerr := cache.Connect(ctx, cfg.RedisURL)
		if cerr != nil {
			return nil, cerr
		}
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		opts = append(opts, service.WithCache(cache.NewRedisResultCache(client, cfg.TrustCacheTTL)))
		rt.Debouncer = cache.NewRedisDebouncer(client)
		logger.Info("Redis result cache enabled", zap.Duration("ttl", cfg.TrustCacheTTL))
	} else {
		logger.Warn("Redis not configured, trust results are not cached and events are not debounced")
	}

	if cfg.PublishEvents && len(cfg.KafkaBrokers) > 0 {
		publisher, perr := events.NewKafkaPublisher(cfg.KafkaBrokers, nil)
		if perr != nil {
			return nil, perr
		}
		rt.closers = append(rt.closers, func() { _ = publisher.Close() })
		opts = append(opts, service.WithPublisher(publisher))
		logger.Info("Kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	if n := buildNotifier(cfg, logger); n != nil {
		opts = append(opts, service.WithNotifier(n))
	}

	rt.Trust = service.NewTrustService(rt.Store, opts...)
	rt.Moderation = service.NewModerationService(rt.Store, opts...)
	rt.Audit = exporter.NewAuditExporter(rt.Store)
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) error {
	cfg := rt.Config
	if cfg.StorageDriver == config.StorageMemory {
		rt.Logger.Warn("Using in-memory storage, results are lost on restart")
		rt.Store = repository.NewMemoryRepository()
		return nil
	}

	pool, err := repository.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, pool.Close)

	if cfg.AutoMigrate {
		if err := repository.RunMigrations(ctx, pool); err != nil {
			return err
		}
		rt.Logger.Info("Database migrations applied")
	}
	rt.Store = repository.NewPostgresRepository(pool)
	return nil
}

// buildNotifier combines the notification service and Slack. It returns nil
// when neither is configured.
func buildNotifier(cfg config.Config, logger *zap.Logger) ports.Notifier {
	var fanout notifier.Fanout

	if cfg.NotificationServiceURL != "" {
		client := httpclient.New(httpClientConfig("notification-service", cfg.Notification), logger)
		fanout = append(fanout, notifier.NewServiceNotifier(cfg.NotificationServiceURL, cfg.NotificationServiceToken, client))
		logger.Info("Notification service enabled", zap.String("url", cfg.NotificationServiceURL))
	} else {
		logger.Warn("Notification service disabled (no NOTIFICATION_SERVICE_URL)")
	}

	if cfg.SlackBotToken != "" {
		client := httpclient.New(httpClientConfig("slack", cfg.Notification), logger)
		fanout = append(fanout, notifier.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, cfg.SlackMentionTeam, client))
		logger.Info("Slack notifier enabled", zap.String("channel", cfg.SlackChannel))
	} else {
		logger.Warn("Slack notifier disabled (no SLACK_BOT_TOKEN)")
	}

	if len(fanout) == 0 {
		return nil
	}
	return fanout
}

func httpClientConfig(name string, s config.HTTPClientSettings) httpclient.Config {
	return httpclient.Config{
		Name:                 name,
		Timeout:              s.Timeout,
		EnableCircuitBreaker: s.EnableCircuitBreaker,
		MaxFailures:          s.MaxFailures,
		CircuitTimeout:       s.CircuitTimeout,
		MaxRetries:           s.MaxRetries,
		InitialInterval:      s.InitialInterval,
		MaxInterval:          s.MaxInterval,
	}
}

// Router mounts the REST API and /metrics behind request logging and bearer auth.
func (rt *Runtime) Router() *mux.Router {
	router := mux.NewRouter()
	handler.NewRestHandler(rt.Trust, rt.Moderation, rt.Audit, rt.Config.RequestTimeout, rt.Logger).Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Use(handler.LoggingMiddleware(rt.Logger))
	router.Use(handler.AuthMiddleware(rt.Config.RESTAuthToken, rt.Logger))
	return router
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
