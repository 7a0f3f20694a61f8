package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/infra/api"
	"gramothi-backend/internal/infra/api/apiv1"
	"gramothi-backend/internal/infra/bundle"
	pg "gramothi-backend/internal/infra/db/postgres"
	"gramothi-backend/internal/infra/logging"
	"gramothi-backend/internal/infra/media"
	"gramothi-backend/internal/infra/metrics"
	"gramothi-backend/internal/infra/offline"
	red "gramothi-backend/internal/infra/redis"
	"gramothi-backend/internal/infra/sched"
	"gramothi-backend/internal/infra/worker"
	"gramothi-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	bundleRepo := pg.NewBundleRepoCacheDecorator(pg.NewBundleRepo(pool), redisClient, cfg.Redis.TTL)
	taskRepo := pg.NewTaskRepo(pool)
	downloadRepo := pg.NewDownloadRepo(pool)
	activityRepo := pg.NewActivityRepo(pool)
	sessionRepo := pg.NewSyncSessionRepo(pool)
	slideProgressRepo := pg.NewSlideProgressRepo(pool)
	recordingProgressRepo := pg.NewRecordingProgressRepo(pool)
	quizRepo := pg.NewQuizResponseRepo(pool)
	studentProgressRepo := pg.NewStudentProgressRepo(pool)
	learningRepo := pg.NewLearningSessionRepo(pool)

	// ---- Media adapters ----
	videoTool := media.NewFFmpegAdapter(cfg.Media, logger)
	slideOptimizer := media.NewSlideOptimizer(cfg.Media, logger)
	assembler := bundle.NewAssembler(logger)
	offlineStore := offline.NewStore(cfg.Download, logger)

	// ---- Use cases ----
	pipelineUC := usecase.NewPipelineUseCase(
		bundleRepo, taskRepo,
		videoTool, slideOptimizer, assembler,
		cfg.Media.TempDir, filepath.Join(cfg.Download.DownloadDir, "bundles"),
		logger,
	)
	downloadUC := usecase.NewDownloadUseCase(downloadRepo, bundleRepo, offlineStore, logger)
	syncUC := usecase.NewSyncUseCase(
		activityRepo, sessionRepo,
		slideProgressRepo, recordingProgressRepo, quizRepo, studentProgressRepo, learningRepo,
		txManager, logger,
	)

	// Downloads stuck from a previous run cannot resume; fail them up front.
	if n, err := downloadUC.FailInterrupted(ctx); err != nil {
		logger.Warn().Err(err).Msg("failing interrupted downloads")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("marked interrupted downloads as failed")
	}

	// ---- Pipeline workers ----
	pipelinePool := worker.NewPool(cfg.Pipeline.Workers, logger)
	pipelinePool.Start(ctx)
	defer pipelinePool.Stop()

	processor := worker.NewPipelineProcessor(pipelineUC, pipelinePool, 30*time.Second, logger)
	go processor.Start(ctx)

	transfers := worker.NewDownloadProcessor(downloadUC, pipelinePool, logger)

	// ---- Retention sweep ----
	cleanup := sched.NewCleanupWorker(cfg.Download.SweepInterval, cfg.Download.Retention, downloadUC, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- HTTP ----
	v1 := apiv1.NewServer(pipelineUC, downloadUC, syncUC, processor, transfers, logger)
	router := api.NewRouter(&cfg.Server, v1, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
