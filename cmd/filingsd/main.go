package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/filings-tracker/internal/bootstrap"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/export"
	"github.com/joseph-ayodele/filings-tracker/internal/pipeline"
	"github.com/joseph-ayodele/filings-tracker/internal/repository"
	"github.com/joseph-ayodele/filings-tracker/internal/server"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
)

func main() {
	cfg := common.LoadConfig()

	// Logger
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.Server.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbResult, err := bootstrap.InitDatabase(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()
	db := dbResult.DB

	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("DB health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("DB health OK")

	stages, closeStages, err := bootstrap.NewStageClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create stage client", "error", err)
		os.Exit(1)
	}
	defer closeStages()

	uploader, closeUploader, err := bootstrap.NewUploader(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create uploader", "error", err)
		os.Exit(1)
	}
	defer closeUploader()

	records := repository.NewRecordRepository(db, logger)
	orch := pipeline.NewOrchestrator(stages, records, logger)
	exporter := export.NewService(records, logger)

	gin.SetMode(gin.ReleaseMode)
	api := server.New(session.NewRegistry(logger), orch, uploader, exporter, server.Options{
		MaxUploadBytes: cfg.Upload.MaxUploadBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health: func(ctx context.Context) error {
			return repository.HealthCheck(ctx, db, 2*time.Second, logger)
		},
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	// gRPC server for health checks and reflection
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
