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

	// Static bearer token protecting the API; empty leaves the API open
	// (local development only).
	APIToken string `envconfig:"API_TOKEN"`

	// Bulk corpus source file and its column mapping
	SourcePath               string `envconfig:"SOURCE_PATH"`
	SourcePromptColumn       string `envconfig:"SOURCE_PROMPT_COLUMN" default:"prompt"`
	SourceAnswerColumn       string `envconfig:"SOURCE_ANSWER_COLUMN" default:"answer"`
	SourceSchemaTypeColumn   string `envconfig:"SOURCE_SCHEMA_TYPE_COLUMN" default:"schema_type"`
	SourceCategoryColumn     string `envconfig:"SOURCE_CATEGORY_COLUMN" default:"category"`
	SourceBusinessUnitColumn string `envconfig:"SOURCE_BUSINESS_UNIT_COLUMN" default:"business_unit"`

	WatchSource      bool          `envconfig:"WATCH_SOURCE" default:"true"`
	DebounceInterval time.Duration `envconfig:"DEBOUNCE_INTERVAL" default:"1500ms"`

	// Enhancement pipeline: YAML config path (empty uses built-in
	// defaults) and the per-document processing budget
	ProcessingConfigPath string        `envconfig:"PROCESSING_CONFIG"`
	PipelineTimeout      time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"30s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"corpus-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CORPUS", &cfg); err != nil {
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

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSource() bool {
	return c.SourcePath != ""
}

func (c *Config) HasAPIToken() bool {
	return c.APIToken != ""
}
