package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger wraps slog.Logger with the component it logs for
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Format    string
	Component string
	Output    io.Writer
	NoColor   bool
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatConsole,
		Component: ComponentApp,
		Output:    os.Stderr,
	}
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// NewHandler builds a tint handler for console output or a JSON handler.
func NewHandler(config Config) (slog.Handler, error) {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(config.Format) {
	case "", FormatConsole:
		return tint.NewHandler(out, &tint.Options{
			Level:      config.Level,
			TimeFormat: time.Kitchen,
			NoColor:    config.NoColor,
		}), nil
	case FormatJSON:
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: config.Level}), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", config.Format)
	}
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	handler, err := NewHandler(config)
	if err != nil {
		return nil, err
	}

	logger := slog.New(handler)
	if config.Component != "" {
		logger = logger.With(FieldComponent, config.Component)
	}

	return &Logger{
		Logger:    logger,
		component: config.Component,
	}, nil
}

// FromSettings builds a logger from the LOG_LEVEL and LOG_FORMAT strings.
func FromSettings(level, format, component string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Level = lvl
	cfg.Format = format
	cfg.Component = component
	return New(cfg)
}

// WithComponent returns a new logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(FieldComponent, component),
		component: component,
	}
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
