package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/handler"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/bootstrap"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/config"
	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/logger"
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
		ServiceName: "scoring-grpc",
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	rt, err := bootstrap.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to build runtime", zap.Error(err))
	}
	defer rt.Close()

	// GRPCListenAddr defaults to localhost only
	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		log.Fatal("Failed to listen", zap.String("addr", cfg.GRPCListenAddr), zap.Error(err))
	}

	s := grpc.NewServer()
	handler.RegisterScoringServer(s, handler.NewGrpcServer(rt.Trust, rt.Moderation, log))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(handler.ScoringServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthSrv)

	reflection.Register(s)

	go func() {
		log.Info("Scoring gRPC API listening", zap.String("addr", cfg.GRPCListenAddr))
		if err := s.Serve(lis); err != nil {
			log.Fatal("Failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	healthSrv.Shutdown()
	s.GracefulStop()
}
