package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"notes2docx/internal/logger"
)

// Config carries the environment-driven settings for the converter.
type Config struct {
	// Hosted API configuration (Groq or any OpenAI-compatible endpoint)
	GroqAPIKey   string
	GroqBaseURL  string
	VisionModel  string
	RefinerModel string

	// Google Cloud configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Local OCR configuration
	TesseractLanguages []string

	// Recognition selection
	BackendOrder       []string
	BackendTimeoutSecs int

	// Working directories
	UploadsDir string
	OutputsDir string
	TempDir    string

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment with defaults. No variable
// is hard-required here: which backends need what is validated lazily when
// a backend is first used, so a keyless environment can still run local-only.
func Load() (*Config, error) {
	config := &Config{
		GroqAPIKey:                 getEnv("GROQ_API_KEY", os.Getenv("OPENAI_API_KEY")),
		GroqBaseURL:                getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		VisionModel:                getEnv("VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		RefinerModel:               getEnv("REFINER_MODEL", "llama-3.3-70b-versatile"),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		TesseractLanguages:         getEnvList("TESSERACT_LANGUAGES", []string{"eng"}),
		BackendOrder:               getEnvList("BACKEND_ORDER", nil),
		BackendTimeoutSecs:         getEnvInt("BACKEND_TIMEOUT_SECONDS", 60),
		UploadsDir:                 getEnv("UPLOADS_DIR", "uploads"),
		OutputsDir:                 getEnv("OUTPUTS_DIR", "outputs"),
		TempDir:                    getEnv("TEMP_DIR", "temp"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.BackendTimeoutSecs <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// EnsureDirs creates the outputs and temp directories if missing. The
// uploads directory is only read from and is left alone.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.OutputsDir, c.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
