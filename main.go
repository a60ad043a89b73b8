package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitovidale/video-manager-service/config"
	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/infrastructure"
	"github.com/vitovidale/video-manager-service/logging"
	"github.com/vitovidale/video-manager-service/usecase"
)

func initDB(ctx context.Context, cfg config.Config) (*sql.DB, infrastructure.Dialect) {
	var db *sql.DB
	var err error
	dialect := infrastructure.DialectPostgres
	if cfg.DBDriver == "sqlite3" {
		dialect = infrastructure.DialectSQLite
		db, err = infrastructure.OpenSQLite(cfg.SQLitePath)
	} else {
		db, err = infrastructure.OpenPostgres(ctx, cfg.PostgresDSN())
	}
	if err != nil {
		logging.Fatal("Could not connect to the database: %v", err)
	}

	if err := infrastructure.Migrate(ctx, db, dialect); err != nil {
		logging.Fatal("Failed to migrate database: %v", err)
	}
	logging.Info("Database schema ready (%s)", dialect)
	return db, dialect
}

func initStorage(ctx context.Context, cfg config.Config) domain.FileStorage {
	if cfg.StorageBackend == "s3" {
		storage, err := infrastructure.NewS3FileStorage(ctx, cfg.S3Bucket)
		if err != nil {
			logging.Fatal("Failed to configure S3 storage: %v", err)
		}
		logging.Info("Storing videos in s3://%s", cfg.S3Bucket)
		return storage
	}
	logging.Info("Storing videos in %s", cfg.UploadDir)
	return infrastructure.NewFSFileStorage(cfg.UploadDir)
}

func initTaskQueue(ctx context.Context, cfg config.Config) domain.TaskQueue {
	if cfg.QueueBackend == "sqs" {
		queue, err := infrastructure.NewSQSTaskQueue(ctx, cfg.SQSQueueURL)
		if err != nil {
			logging.Fatal("Failed to configure SQS: %v", err)
		}
		return queue
	}
	queue, err := infrastructure.DialRabbitMQ(ctx, cfg.RabbitMQURL(), cfg.RabbitMQQueue)
	if err != nil {
		logging.Fatal("Could not connect to RabbitMQ: %v", err)
	}
	return queue
}

// startConsumer runs post-process tasks until ctx is cancelled.
func startConsumer(ctx context.Context, queue domain.TaskQueue, uc *usecase.PostProcessVideoUseCase) {
	for {
		err := queue.ConsumePostProcess(ctx, uc.Execute)
		if ctx.Err() != nil {
			logging.Info("Task consumer stopped")
			return
		}
		logging.Error("Task consumer exited: %v. Restarting in 5s", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Invalid configuration: %v", err)
	}

	db, dialect := initDB(ctx, cfg)
	defer db.Close()

	storage := initStorage(ctx, cfg)
	queue := initTaskQueue(ctx, cfg)
	defer queue.Close()

	videoRepo := infrastructure.NewPostgresVideoRepository(db)
	if dialect == infrastructure.DialectSQLite {
		videoRepo = infrastructure.NewSQLiteVideoRepository(db)
	}
	permissions := infrastructure.NewSQLPermissionPolicy(db, dialect)
	indexer := usecase.NewSearchIndexer(infrastructure.NewSQLSearchBackend(db, dialect))

	postProcess := usecase.NewPostProcessSignal()
	postProcess.Connect("record_file_size", usecase.RecordFileSize(videoRepo, storage))
	postProcessUC := &usecase.PostProcessVideoUseCase{VideoRepo: videoRepo, Signal: postProcess}

	go startConsumer(ctx, queue, postProcessUC)

	handlers := infrastructure.NewVideoHandlers(
		&usecase.UploadVideoUseCase{
			VideoRepo:   videoRepo,
			FileStorage: storage,
			Permissions: permissions,
			TaskQueue:   queue,
			Indexer:     indexer,
			Field: usecase.FieldConfig{
				MaxUploadSize:     cfg.MaxUploadSize,
				AllowedExtensions: cfg.AllowedExtensions,
			},
		},
		&usecase.EditVideoUseCase{VideoRepo: videoRepo, Permissions: permissions, Indexer: indexer},
		&usecase.DeleteVideoUseCase{VideoRepo: videoRepo, FileStorage: storage, Permissions: permissions, Indexer: indexer},
		&usecase.ListVideosUseCase{VideoRepo: videoRepo, Indexer: indexer},
	)
	health := &infrastructure.HealthHandler{DB: db, Queue: queue}

	router := gin.Default()
	router.Use(infrastructure.MetricsMiddleware())

	router.GET("/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Video Manager Service is running!"})
	})

	authRoutes := router.Group("/")
	authRoutes.Use(infrastructure.AuthMiddleware([]byte(cfg.JWTSecret)))
	handlers.RegisterRoutes(authRoutes)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logging.Info("Video Manager Service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed: %v", err)
	}
}
