package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/events"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/scheduler"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/bootstrap"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/config"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/logger"
)

const (
	pollBatch    = 100
	sweepTimeout = 30 * time.Minute
)

func main() {
	cfg, err := config.Load(os.Getenv("SCORING_CONFIG_FILE"))
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		ServiceName: "scoring-worker",
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build runtime", zap.Error(err))
	}
	defer rt.Close()

	sweep, err := scheduler.NewRecalcScheduler(cfg.TrustRecalcCron, rt.Trust, sweepTimeout, log)
	if err != nil {
		log.Fatal("Invalid trust recalculation schedule", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, events.Topics())
		if err != nil {
			log.Fatal("Failed to create Kafka consumer", zap.Error(err))
		}
		defer func() { _ = consumer.Close() }()

		dispatcher := events.NewDispatcher(rt.Trust, rt.Moderation, rt.Store, rt.Debouncer, cfg.TrustDebounce, log)
		g.Go(func() error {
			log.Info("Consuming platform events",
				zap.Strings("topics", events.Topics()),
				zap.String("group", cfg.KafkaConsumerGroup))
			return dispatcher.Run(gctx, consumer, pollBatch)
		})
	} else {
		log.Warn("Event consumption disabled (no KAFKA_BROKERS)")
	}

	g.Go(func() error {
		sweep.Start()
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sweep.Stop(stopCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Worker stopped with error", zap.Error(err))
		return
	}
	log.Info("Worker stopped gracefully")
}
