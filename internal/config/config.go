package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	AssistantID string `yaml:"assistant_id"`
	BaseURL     string `yaml:"base_url"`
	OrgID       string `yaml:"-"`
}

// SentryConfig identifies the error collector and how events are tagged
type SentryConfig struct {
	DSN         string
	ServiceName string
	Stage       string
}

// RunConfig controls how assistant runs are awaited
type RunConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
	KeepThread   bool
}

// Config holds all application configuration
type Config struct {
	Port            string
	OpenAI          OpenAIConfig
	Sentry          SentryConfig
	Run             RunConfig
	PDFGeneratorURL string
	Workers         int
	TaskDBPath      string
	SettingsDir     string
}

// Load loads configuration from .env, the environment and the secrets file
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port: getEnv("PORT", "5000"),
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			AssistantID: os.Getenv("ASSISTANT_ID"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			OrgID:       os.Getenv("OPENAI_ORG_ID"),
		},
		Sentry: SentryConfig{
			DSN:         os.Getenv("SENTRY_DSN"),
			ServiceName: getEnv("SERVICE_NAME", "assistant"),
			Stage:       getEnv("STAGE", "dev"),
		},
		PDFGeneratorURL: os.Getenv("PDF_GENERATOR_URL"),
		TaskDBPath:      os.Getenv("TASK_DB_PATH"),
		SettingsDir:     getEnv("SETTINGS_DIR", "settings"),
	}

	var err error
	if cfg.Run.PollInterval, err = getDuration("RUN_POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.Run.Timeout, err = getDuration("RUN_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Run.KeepThread, err = getBool("KEEP_THREAD", false); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt("WORKERS", 4); err != nil {
		return nil, err
	}

	// Values missing from the environment fall back to the secrets file
	fileCfg, err := loadOpenAIConfig(filepath.Join(cfg.SettingsDir, "secrets", "openai.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to load openai secrets: %w", err)
	default:
		mergeOpenAIConfig(&cfg.OpenAI, fileCfg)
	}

	return cfg, nil
}

// Validate checks that everything required to serve requests is present
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.OpenAI.AssistantID == "" {
		missing = append(missing, "ASSISTANT_ID")
	}
	if c.PDFGeneratorURL == "" {
		missing = append(missing, "PDF_GENERATOR_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.Run.PollInterval <= 0 {
		return fmt.Errorf("RUN_POLL_INTERVAL must be positive, got %s", c.Run.PollInterval)
	}
	return nil
}

// loadOpenAIConfig loads OpenAI configuration from a YAML file
func loadOpenAIConfig(path string) (*OpenAIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg OpenAIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mergeOpenAIConfig(dst *OpenAIConfig, src *OpenAIConfig) {
	if dst.APIKey == "" {
		dst.APIKey = src.APIKey
	}
	if dst.AssistantID == "" {
		dst.AssistantID = src.AssistantID
	}
	if dst.BaseURL == "" {
		dst.BaseURL = src.BaseURL
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
