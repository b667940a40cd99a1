package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/bootstrap"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/config"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("SCORING_CONFIG_FILE"))
	if err != nil {
		// logger not built yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		ServiceName: "scoring-api",
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	rt, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build runtime", zap.Error(err))
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.RESTPort,
		Handler:      rt.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Scoring REST API listening", zap.String("port", cfg.RESTPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server stopped gracefully")
}
