package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/log/global"
)

// instrumentationName names the OTel logger the gate emits through.
const instrumentationName = "kyc-gate"

// Options configures the process logger.
type Options struct {
	// Level is debug, info, warn or error. Empty falls back to LOG_LEVEL.
	Level string
	// OTel also emits every record through the global OTel logger provider.
	OTel bool
	// Output receives JSON lines. Defaults to stdout.
	Output io.Writer

	// Stamped on every record so gate logs from several instances can be told apart.
	Service        string
	Instance       string
	OnboardingPath string
}

// Init builds the process logger, installs it as the slog default and
// returns it.
func Init(opts Options) *slog.Logger {
	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv("LOG_LEVEL")
	}
	level := parseLevel(levelName)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler = NewTraceContextHandler(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	if opts.OTel {
		bridge := NewOTelHandler(global.GetLoggerProvider().Logger(instrumentationName), level)
		handler = NewMultiHandler(handler, bridge)
	}

	logger := slog.New(handler).With(gateAttrs(opts)...)
	slog.SetDefault(logger)
	GlobalContext = NewContextLogger(logger)

	return logger
}

func gateAttrs(opts Options) []any {
	attrs := make([]any, 0, 6)
	if opts.Service != "" {
		attrs = append(attrs, "service", opts.Service)
	}
	if opts.Instance != "" {
		attrs = append(attrs, "instance", opts.Instance)
	}
	if opts.OnboardingPath != "" {
		attrs = append(attrs, "kyc.onboarding_path", opts.OnboardingPath)
	}
	return attrs
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
