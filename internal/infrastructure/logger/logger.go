package logger

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/erp/backoffice/internal/domain/finance"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string // layout for the time key; ISO8601 when empty
	Service    string // added to every entry when set
}

// ForEnvironment returns the configuration of a backoffice binary. Production
// writes JSON for the log shipper, everything else writes colored console lines.
func ForEnvironment(env, service string) Config {
	cfg := Config{Level: "info", Format: "console", Output: "stdout", Service: service}
	if env == "production" {
		cfg.Format = "json"
	}
	return cfg
}

// New builds the process logger
func New(cfg Config) (*zap.Logger, error) {
	zc, err := cfg.zapConfig()
	if err != nil {
		return nil, err
	}
	var opts []zap.Option
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	log, err := zc.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

func (cfg Config) zapConfig() (zap.Config, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zap.Config{}, err
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.TimeFormat != "" {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	}

	switch cfg.Format {
	case "json":
	case "console":
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	output := strings.TrimSpace(cfg.Output)
	switch strings.ToLower(output) {
	case "", "stdout":
		output = "stdout"
	case "stderr":
		output = "stderr"
	}

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         cfg.Format,
		EncoderConfig:    enc,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}, nil
}

// ParseLevel converts a configured level name. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// Sync flushes buffered entries. Terminals and pipes reject fsync, which is
// not a lost entry.
func Sync(log *zap.Logger) error {
	err := log.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// ScopeFields names the isolation scope an operation ran under
func ScopeFields(scope finance.Scope) []zap.Field {
	fields := []zap.Field{zap.String("scope", scope.Kind.String())}
	switch scope.Kind {
	case finance.ScopeDevice, finance.ScopeCompany:
		fields = append(fields, zap.Int64(scope.Column(), scope.Value()))
	}
	return fields
}

// WarningFields names a degraded-mode warning
func WarningFields(op string, w finance.Warning) []zap.Field {
	return []zap.Field{
		zap.String("operation", op),
		zap.String("code", string(w.Code)),
		zap.String("detail", w.Message),
	}
}
