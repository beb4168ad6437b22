package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// EmbeddingDims is fixed for the lifetime of the store. Changing it
	// requires re-embedding every row.
	EmbeddingDims  int    `envconfig:"EMBEDDING_DIMS" default:"1536"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"kanso-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	WorkerPollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"10"`
	WorkerBatchSize   int `envconfig:"WORKER_BATCH_SIZE" default:"20"`
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"4"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT"`
	SentrySampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KANSO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.EmbeddingDims <= 0 {
		return nil, fmt.Errorf("embedding dims must be positive, got %d", cfg.EmbeddingDims)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
