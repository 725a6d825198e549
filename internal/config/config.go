package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Azure struct {
	Endpoint         string
	APIKey           string
	APIVersion       string
	ChatDeployment   string
	VisionDeployment string
}

type Gemini struct {
	APIKey      string
	TextModel   string
	VisionModel string
}

type Ollama struct {
	URL         string
	TextModel   string
	VisionModel string
}

// Config is the runtime configuration, read from the environment.
type Config struct {
	Provider string
	Azure    Azure
	Gemini   Gemini
	Ollama   Ollama

	UploadDir     string
	OrganImageDir string
	OrganCatalog  string
	OrganMatch    string

	MinImageBytes  int64
	MaxUploadBytes int64

	InferenceTimeout       time.Duration
	InferenceMaxInputChars int
	InferenceRateLimit     float64
	Temperature            float64

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads the environment. Malformed numeric or duration values are errors; missing
// required values are reported by Validate.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Provider: strings.ToLower(getEnvString("INFERENCE_PROVIDER", ProviderAzure)),
		Azure: Azure{
			Endpoint:         os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIKey:           os.Getenv("AZURE_OPENAI_API_KEY"),
			APIVersion:       os.Getenv("AZURE_OPENAI_API_VERSION"),
			ChatDeployment:   os.Getenv("AZURE_OPENAI_CHAT_DEPLOYMENT"),
			VisionDeployment: os.Getenv("AZURE_OPENAI_VISION_DEPLOYMENT"),
		},
		Gemini: Gemini{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			TextModel:   os.Getenv("GEMINI_TEXT_MODEL"),
			VisionModel: os.Getenv("GEMINI_VISION_MODEL"),
		},
		Ollama: Ollama{
			URL:         getEnvString("OLLAMA_URL", "http://localhost:11434"),
			TextModel:   os.Getenv("OLLAMA_TEXT_MODEL"),
			VisionModel: os.Getenv("OLLAMA_VISION_MODEL"),
		},

		UploadDir:     getEnvString("UPLOAD_DIR", "uploads"),
		OrganImageDir: getEnvString("ORGAN_IMAGE_DIR", "static/organs"),
		OrganCatalog:  os.Getenv("ORGAN_CATALOG"),
		OrganMatch:    getEnvString("ORGAN_MATCH", "catalog"),

		MinImageBytes:  p.int64("MIN_IMAGE_BYTES", 1024),
		MaxUploadBytes: p.int64("MAX_UPLOAD_BYTES", 25<<20),

		InferenceTimeout:       p.duration("INFERENCE_TIMEOUT", 60*time.Second),
		InferenceMaxInputChars: int(p.int64("INFERENCE_MAX_INPUT_CHARS", 12000)),
		InferenceRateLimit:     p.float("INFERENCE_RATE_LIMIT", 0),
		Temperature:            p.float("INFERENCE_TEMPERATURE", 0.2),

		SessionTTL:           p.duration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: p.duration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, domain.ConfigError("invalid environment", err)
	}
	return cfg, nil
}

// Validate reports every missing required setting for the selected provider.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch c.Provider {
	case ProviderAzure:
		require("AZURE_OPENAI_ENDPOINT", c.Azure.Endpoint)
		require("AZURE_OPENAI_API_KEY", c.Azure.APIKey)
		require("AZURE_OPENAI_API_VERSION", c.Azure.APIVersion)
		require("AZURE_OPENAI_CHAT_DEPLOYMENT", c.Azure.ChatDeployment)
		require("AZURE_OPENAI_VISION_DEPLOYMENT", c.Azure.VisionDeployment)
	case ProviderGemini:
		require("GEMINI_API_KEY", c.Gemini.APIKey)
		require("GEMINI_TEXT_MODEL", c.Gemini.TextModel)
		require("GEMINI_VISION_MODEL", c.Gemini.VisionModel)
	case ProviderOllama:
		require("OLLAMA_TEXT_MODEL", c.Ollama.TextModel)
		require("OLLAMA_VISION_MODEL", c.Ollama.VisionModel)
	default:
		return domain.ConfigError(fmt.Sprintf("unsupported INFERENCE_PROVIDER %q (use azure, gemini or ollama)", c.Provider), nil)
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if c.MinImageBytes < 0 {
		errs = append(errs, fmt.Errorf("MIN_IMAGE_BYTES must not be negative"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.InferenceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("INFERENCE_TIMEOUT must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return domain.ConfigError("invalid configuration", err)
	}
	return nil
}

// TextModel is the model or deployment used for text operations.
func (c *Config) TextModel() string {
	switch c.Provider {
	case ProviderGemini:
		return c.Gemini.TextModel
	case ProviderOllama:
		return c.Ollama.TextModel
	default:
		return c.Azure.ChatDeployment
	}
}

// VisionModel is the model or deployment used for image classification.
func (c *Config) VisionModel() string {
	switch c.Provider {
	case ProviderGemini:
		return c.Gemini.VisionModel
	case ProviderOllama:
		return c.Ollama.VisionModel
	default:
		return c.Azure.VisionDeployment
	}
}

func getEnvString(envVar string, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so they can be reported together.
type parser struct {
	errs []error
}

func (p *parser) int64(envVar string, defaultValue int64) int64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", envVar, err))
		return defaultValue
	}
	return n
}

func (p *parser) float(envVar string, defaultValue float64) float64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", envVar, err))
		return defaultValue
	}
	return f
}

func (p *parser) duration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", envVar, err))
		return defaultValue
	}
	return d
}
