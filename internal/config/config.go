// Package config loads runtime settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Generation providers.
const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

type Config struct {
	ProjectID           string        `mapstructure:"PROJECT_ID"`
	UploadBucket        string        `mapstructure:"UPLOAD_BUCKET"`
	FirestoreCollection string        `mapstructure:"FIRESTORE_COLLECTION"`
	VertexAIRegion      string        `mapstructure:"VERTEX_AI_REGION"`
	GenerationProvider  string        `mapstructure:"GENERATION_PROVIDER"`
	GenerationModel     string        `mapstructure:"GENERATION_MODEL"`
	OpenAIBaseURL       string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey        string        `mapstructure:"OPENAI_API_KEY"`
	SignedURLTTL        time.Duration `mapstructure:"SIGNED_URL_TTL"`
	SignerEmail         string        `mapstructure:"SIGNER_EMAIL"`
	MaxTextChars        int           `mapstructure:"MAX_TEXT_CHARS"`
	MaxOutputTokens     int32         `mapstructure:"MAX_OUTPUT_TOKENS"`
	SummaryLanguage     string        `mapstructure:"SUMMARY_LANGUAGE"`
	HistoryTurns        int           `mapstructure:"HISTORY_TURNS"`
	TextCacheSize       int           `mapstructure:"TEXT_CACHE_SIZE"`
	TextCacheTTL        time.Duration `mapstructure:"TEXT_CACHE_TTL"`
	WorkflowID          string        `mapstructure:"WORKFLOW_ID"`
	WorkflowLocation    string        `mapstructure:"WORKFLOW_LOCATION"`
	StoreBackend        string        `mapstructure:"STORE_BACKEND"`
	Port                int           `mapstructure:"PORT"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"PROJECT_ID":           "",
	"UPLOAD_BUCKET":        "",
	"FIRESTORE_COLLECTION": "owners",
	"VERTEX_AI_REGION":     "us-central1",
	"GENERATION_PROVIDER":  ProviderVertex,
	"GENERATION_MODEL":     "gemini-1.5-flash",
	"OPENAI_BASE_URL":      "",
	"OPENAI_API_KEY":       "",
	"SIGNED_URL_TTL":       time.Hour,
	"SIGNER_EMAIL":         "",
	"MAX_TEXT_CHARS":       15000,
	"MAX_OUTPUT_TOKENS":    1000,
	"SUMMARY_LANGUAGE":     "Korean",
	"HISTORY_TURNS":        2,
	"TEXT_CACHE_SIZE":      128,
	"TEXT_CACHE_TTL":       10 * time.Minute,
	"WORKFLOW_ID":          "",
	"WORKFLOW_LOCATION":    "us-central1",
	"STORE_BACKEND":        StoreFirestore,
	"PORT":                 8080,
	"SHUTDOWN_TIMEOUT":     15 * time.Second,
	"LOG_LEVEL":            "info",
}

// Load reads the configuration from the environment. Every key has a default
// except the required ones checked by Validate.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.GenerationProvider = strings.ToLower(strings.TrimSpace(cfg.GenerationProvider))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.UploadBucket == "" {
		errs = append(errs, errors.New("UPLOAD_BUCKET environment variable must be set"))
	}

	switch c.StoreBackend {
	case StoreFirestore:
		if c.ProjectID == "" {
			errs = append(errs, errors.New("PROJECT_ID environment variable must be set for the firestore store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of %s, %s", c.StoreBackend, StoreFirestore, StoreMemory))
	}

	switch c.GenerationProvider {
	case ProviderVertex:
		if c.ProjectID == "" {
			errs = append(errs, errors.New("PROJECT_ID environment variable must be set for the vertex provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY or OPENAI_BASE_URL must be set for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("GENERATION_PROVIDER %q is not one of %s, %s", c.GenerationProvider, ProviderVertex, ProviderOpenAI))
	}

	if c.WorkflowID != "" && c.ProjectID == "" {
		errs = append(errs, errors.New("PROJECT_ID environment variable must be set when WORKFLOW_ID is set"))
	}
	if c.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL must be positive"))
	}
	if c.MaxTextChars <= 0 {
		errs = append(errs, errors.New("MAX_TEXT_CHARS must be positive"))
	}
	if c.MaxOutputTokens <= 0 {
		errs = append(errs, errors.New("MAX_OUTPUT_TOKENS must be positive"))
	}
	if c.HistoryTurns < 0 {
		errs = append(errs, errors.New("HISTORY_TURNS cannot be negative"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
