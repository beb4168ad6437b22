package admin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kanso-ai/kanso/internal/config"
	"github.com/kanso-ai/kanso/internal/database"
	"github.com/kanso-ai/kanso/internal/jobs"
	"github.com/kanso-ai/kanso/internal/openai"
	"github.com/kanso-ai/kanso/internal/repository"
	"github.com/kanso-ai/kanso/internal/server"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/kanso-ai/kanso/internal/storage"
	"github.com/kanso-ai/kanso/internal/telemetry"
	"github.com/rs/zerolog"
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// WorkerCmd returns the worker command
func WorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the embedding worker",
		Long:  "Start the background worker that processes pending embedding jobs and serves health endpoints",
		RunE:  runWorker,
	}

	cmd.Flags().StringP("port", "p", "", "Port for health endpoints (overrides KANSO_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg.Debug)

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: cfg.SentrySampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		} else {
			defer shutdownTelemetry()
		}
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL, log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("KANSO_OPENAI_API_KEY is required for the embedding worker")
	}

	fragmentRepo := repository.NewFragmentRepository(pool, cfg.EmbeddingDims)
	unitRepo := repository.NewKnowledgeUnitRepository(pool, cfg.EmbeddingDims)
	jobRepo := repository.NewEmbeddingJobRepository(pool)

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDims,
	})
	embeddingSvc := service.NewEmbeddingService(embeddingClient, fragmentRepo, unitRepo)

	processor := jobs.NewEmbeddingWorker(jobRepo, embeddingSvc, cfg.WorkerBatchSize, cfg.WorkerConcurrency, log)
	worker := jobs.NewWorker(processor, time.Duration(cfg.WorkerPollSeconds)*time.Second, log)
	go worker.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewHealthRouter(pool),
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("health endpoints listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server forced to shutdown: %w", err)
	}

	log.Info().Msg("worker exited")
	return nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// newStorageClient builds the optional S3 client for archiving raw source
// payloads. Returns nil when storage is not configured.
func newStorageClient(ctx context.Context, cfg *config.Config) (service.StorageClientInterface, error) {
	if !cfg.HasS3() {
		return nil, nil
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}

	return &s3StorageAdapter{client: s3Client}, nil
}

type s3StorageAdapter struct {
	client *storage.S3Client
}

func (a *s3StorageAdapter) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	return a.client.PutObject(ctx, key, body, contentType)
}

func (a *s3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *s3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}
