package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Knowledge pipeline tuning
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
	BatchSize       int           `envconfig:"BATCH_SIZE" default:"50"`
	Concurrency     int           `envconfig:"CONCURRENCY" default:"4"`
	MaxAttempts     int32         `envconfig:"MAX_ATTEMPTS" default:"3"`
	RetryBackoff    time.Duration `envconfig:"RETRY_BACKOFF" default:"1m"`
	StaleClaimAfter time.Duration `envconfig:"STALE_CLAIM_AFTER" default:"10m"`

	// Optional taxonomy rules file; the built-in rules are used when unset
	TaxonomyPath string `envconfig:"TAXONOMY_PATH"`

	// Dead-letter archive target
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"kmap-dead-letters"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KMAP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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
