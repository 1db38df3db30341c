package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	PromptModeModel  = "model"
	PromptModeInline = "inline"
)

// Gemini model defaults. The openai provider swaps them for its own when left
// unchanged.
const (
	DefaultExtractorModel   = "gemini-2.5-pro"
	DefaultSynthesizerModel = "gemini-2.5-flash"
	DefaultPromptModel      = "gemini-2.5-flash"
	DefaultImageModel       = "gemini-2.5-flash-image"

	OpenAITextModel  = "gpt-4o"
	OpenAIImageModel = "gpt-image-1"
)

type Config struct {
	// Server
	ServerPort            int    `envconfig:"SERVER_PORT" default:"8081" validate:"min=1,max=65535"`
	MaxUploadSizeMB       int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50" validate:"min=1"`
	RequestTimeoutSeconds int    `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"300" validate:"min=1"`
	RunLogPath            string `envconfig:"RUN_LOG_PATH" default:"data/logs/runs.log"`

	// Providers
	LLMProvider   string `envconfig:"LLM_PROVIDER" default:"gemini" validate:"oneof=gemini openai"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" validate:"omitempty,url"`

	ExtractorModel   string `envconfig:"EXTRACTOR_MODEL" default:"gemini-2.5-pro" validate:"required"`
	SynthesizerModel string `envconfig:"SYNTHESIZER_MODEL" default:"gemini-2.5-flash" validate:"required"`
	PromptModel      string `envconfig:"PROMPT_MODEL" default:"gemini-2.5-flash" validate:"required"`
	ImageModel       string `envconfig:"IMAGE_MODEL" default:"gemini-2.5-flash-image" validate:"required"`

	// Pipeline
	MaxSections      int    `envconfig:"MAX_SECTIONS" default:"5" validate:"min=1,max=20"`
	ImageConcurrency int    `envconfig:"IMAGE_CONCURRENCY" default:"3" validate:"min=1,max=16"`
	ImageMode        string `envconfig:"IMAGE_MODE" default:"inline" validate:"oneof=inline file"`
	ImageDir         string `envconfig:"IMAGE_DIR" default:"./data/images"`
	PromptMode       string `envconfig:"PROMPT_MODE" default:"model" validate:"oneof=model inline"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Run history, disabled when DB_HOST is empty
	DBHost        string `envconfig:"DB_HOST"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"manualgen"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"manualgen"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Run events, disabled when NSQD_HOST is empty
	NSQDHost string `envconfig:"NSQD_HOST"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10" validate:"min=1"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2" validate:"min=0"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyProviderDefaults replaces Gemini model names left at their defaults
// when another provider is selected.
func (c *Config) applyProviderDefaults() {
	if c.LLMProvider != ProviderOpenAI {
		return
	}
	swap := func(v *string, def, repl string) {
		if *v == def {
			*v = repl
		}
	}
	swap(&c.ExtractorModel, DefaultExtractorModel, OpenAITextModel)
	swap(&c.SynthesizerModel, DefaultSynthesizerModel, OpenAITextModel)
	swap(&c.PromptModel, DefaultPromptModel, OpenAITextModel)
	swap(&c.ImageModel, DefaultImageModel, OpenAIImageModel)
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.DBHost != "" {
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	if c.ImageMode == "file" && c.ImageDir == "" {
		return fmt.Errorf("%w: IMAGE_DIR", ErrMissingRequired)
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) DatabaseEnabled() bool { return c.DBHost != "" }

func (c *Config) EventsEnabled() bool { return c.NSQDHost != "" }

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
