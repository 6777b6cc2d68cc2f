package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// DefaultTemperature matches the sampling temperature the question prompt was tuned for
const DefaultTemperature = 0.6

type Config struct {
	ServerAddress     string
	LogLevel          string
	LogFormat         string
	Provider          string
	Model             string
	Temperature       float64
	MaxTokens         int64
	CompletionTimeout time.Duration
	GenerateTimeout   time.Duration
	MaxEmptyAttempts  int
}

func Load() (Config, error) {
	cfg := Config{
		ServerAddress:     envOrDefault("GPTFLO_SERVER_ADDR", ":3000"),
		LogLevel:          envOrDefault("GPTFLO_LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("GPTFLO_LOG_FORMAT", "auto"),
		Provider:          strings.ToLower(envOrDefault("GPTFLO_PROVIDER", "openai")),
		Model:             os.Getenv("GPTFLO_MODEL"),
		Temperature:       DefaultTemperature,
		MaxTokens:         100,
		CompletionTimeout: 30 * time.Second,
		GenerateTimeout:   2 * time.Minute,
		MaxEmptyAttempts:  5,
	}

	if v := os.Getenv("GPTFLO_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return Config{}, fmt.Errorf("invalid GPTFLO_TEMPERATURE value %q: must be a number in [0, 2]", v)
		}
		cfg.Temperature = t
	}

	if v := os.Getenv("GPTFLO_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid GPTFLO_MAX_TOKENS value %q: must be a positive integer", v)
		}
		cfg.MaxTokens = n
	}

	if v := os.Getenv("GPTFLO_MAX_EMPTY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid GPTFLO_MAX_EMPTY_ATTEMPTS value %q: must be a positive integer", v)
		}
		cfg.MaxEmptyAttempts = n
	}

	var err error
	if cfg.CompletionTimeout, err = durationOrDefault("GPTFLO_COMPLETION_TIMEOUT", cfg.CompletionTimeout); err != nil {
		return Config{}, err
	}
	if cfg.GenerateTimeout, err = durationOrDefault("GPTFLO_GENERATE_TIMEOUT", cfg.GenerateTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
	}
	return d, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "info", "":
		return slog.LevelInfo, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger builds the process logger. Format "auto" picks the coloured
// handler on a terminal and JSON everywhere else.
func NewLogger(level, format string) (*slog.Logger, error) {
	return NewLoggerTo(os.Stdout, level, format)
}

// NewLoggerTo is NewLogger writing to f
func NewLoggerTo(f *os.File, level, format string) (*slog.Logger, error) {
	return newLogger(f, level, format, term.IsTerminal(int(f.Fd())))
}

func newLogger(w io.Writer, level, format string, tty bool) (*slog.Logger, error) {
	slogLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "auto", "":
		if tty {
			return slog.New(tint.NewHandler(w, &tint.Options{Level: slogLevel, TimeFormat: time.Kitchen})), nil
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
	case "text":
		return slog.New(tint.NewHandler(w, &tint.Options{Level: slogLevel, TimeFormat: time.Kitchen, NoColor: !tty})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
