package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	TranscriberBackend  = "backend"
	TranscriberDeepgram = "deepgram"
)

// Config stores runtime configuration resolved from the environment.
type Config struct {
	Backend     BackendConfig
	Transcriber string `env:"VOXQUERY_TRANSCRIBER" validate:"oneof=backend deepgram"`
	Deepgram    DeepgramConfig
	Audio       AudioConfig
	Rules       RulesConfig
	Log         LogConfig
}

type BackendConfig struct {
	BaseURL        string        `env:"VOXQUERY_BACKEND_URL" validate:"required,url"`
	TranscribePath string        `env:"VOXQUERY_TRANSCRIBE_PATH" validate:"startswith=/"`
	ConvertPath    string        `env:"VOXQUERY_CONVERT_PATH" validate:"startswith=/"`
	ExecutePath    string        `env:"VOXQUERY_EXECUTE_PATH" validate:"startswith=/"`
	Timeout        time.Duration `env:"VOXQUERY_HTTP_TIMEOUT_MS" validate:"gt=0"`
}

type DeepgramConfig struct {
	APIKey      string `env:"DEEPGRAM_API_KEY"`
	APIBaseURL  string `env:"DEEPGRAM_API_BASE" validate:"required,url"`
	Model       string `env:"DEEPGRAM_MODEL" validate:"required"`
	Language    string `env:"DEEPGRAM_LANGUAGE"`
	SmartFormat bool   `env:"DEEPGRAM_SMART_FORMAT"`
}

type AudioConfig struct {
	RecorderCommand string `env:"VOXQUERY_FFMPEG_COMMAND" validate:"required"`
	InputFormat     string `env:"VOXQUERY_AUDIO_INPUT_FORMAT" validate:"required"`
	InputDevice     string `env:"VOXQUERY_AUDIO_INPUT_DEVICE" validate:"required"`
	SampleRate      int    `env:"VOXQUERY_SAMPLE_RATE" validate:"gte=8000,lte=192000"`
	Channels        int    `env:"VOXQUERY_CHANNELS" validate:"gte=1,lte=8"`
	ChunkSize       int    `env:"VOXQUERY_AUDIO_CHUNK_SIZE" validate:"gte=256"`
}

type RulesConfig struct {
	Path           string `env:"VOXQUERY_RULES_FILE"`
	IterationLimit int    `env:"VOXQUERY_RULE_ITERATION_LIMIT" validate:"gt=0"`
}

type LogConfig struct {
	File  string `env:"VOXQUERY_LOG_FILE" validate:"required"`
	Level string `env:"VOXQUERY_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Load resolves configuration from an optional dotenv file, environment
// variables and defaults. An explicit envFile must exist; otherwise a
// .env in the working directory is used when present. Variables already
// set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(envOrDefault("VOXQUERY_BACKEND_URL", "http://localhost:8080"), "/"),
			TranscribePath: envOrDefault("VOXQUERY_TRANSCRIBE_PATH", "/transcribe"),
			ConvertPath:    envOrDefault("VOXQUERY_CONVERT_PATH", "/convert"),
			ExecutePath:    envOrDefault("VOXQUERY_EXECUTE_PATH", "/execute"),
			Timeout:        time.Duration(envOrDefaultInt("VOXQUERY_HTTP_TIMEOUT_MS", 60000)) * time.Millisecond,
		},
		Transcriber: strings.ToLower(envOrDefault("VOXQUERY_TRANSCRIBER", TranscriberBackend)),
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOXQUERY_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOXQUERY_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("VOXQUERY_AUDIO_INPUT_DEVICE"),
				os.Getenv("PULSE_SOURCE"),
				"default",
			),
			SampleRate: envOrDefaultInt("VOXQUERY_SAMPLE_RATE", 16000),
			Channels:   envOrDefaultInt("VOXQUERY_CHANNELS", 1),
			ChunkSize:  envOrDefaultInt("VOXQUERY_AUDIO_CHUNK_SIZE", 4096),
		},
		Rules: RulesConfig{
			Path:           envOrDefault("VOXQUERY_RULES_FILE", filepath.Join(home, ".config", "voxquery", "rules.yaml")),
			IterationLimit: envOrDefaultInt("VOXQUERY_RULE_ITERATION_LIMIT", 30),
		},
		Log: LogConfig{
			File:  envOrDefault("VOXQUERY_LOG_FILE", filepath.Join(home, ".local", "state", "voxquery", "voxquery.log")),
			Level: strings.ToLower(envOrDefault("VOXQUERY_LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report environment keys instead of Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		problems := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	if c.Transcriber == TranscriberDeepgram && c.Deepgram.APIKey == "" {
		return errors.New("invalid configuration: DEEPGRAM_API_KEY is required when VOXQUERY_TRANSCRIBER=deepgram")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

func loadDotEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %q: %w", envFile, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
