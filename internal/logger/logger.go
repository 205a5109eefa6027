package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

var (
	Logger          *slog.Logger
	errorSampleRate atomic.Int32
	programLevel    = new(slog.LevelVar)
	shutdownFunc    func(context.Context) error
)

// Counters exposed on the metrics endpoint. They are incremented whether
// or not the corresponding log line survives sampling.
var (
	TotalErrors      atomic.Int64
	TotalWarnings    atomic.Int64
	Total5xxErrors   atomic.Int64
	Total4xxErrors   atomic.Int64
	Total409Errors   atomic.Int64
	SlowRequests     atomic.Int64
	UpstreamFailures atomic.Int64
	PredictionsTotal atomic.Int64
	HighRiskOutcomes atomic.Int64
	LowRiskOutcomes  atomic.Int64
)

func init() {
	errorSampleRate.Store(1)
	programLevel.Set(slog.LevelInfo)
	setupJSONLogging(os.Stdout)
}

// Setup configures the process logger from the environment:
// LOG_LEVEL (TRACE..FATAL, default INFO), ERROR_SAMPLE_RATE (log 1 in N
// warnings/errors, default 1), OTEL_ENABLED and OTEL_SERVICE_NAME.
func Setup(ctx context.Context) {
	SetLevelFromEnv("LOG_LEVEL", LevelInfo)

	if sampleStr := os.Getenv("ERROR_SAMPLE_RATE"); sampleStr != "" {
		if rate, err := strconv.Atoi(sampleStr); err == nil && rate > 0 {
			errorSampleRate.Store(int32(rate))
		}
	}

	if strings.ToLower(os.Getenv("OTEL_ENABLED")) != "true" {
		setupJSONLogging(os.Stdout)
		return
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "cardiorisk"
	}

	shutdown, err := setupOTELLogging(ctx, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
		setupJSONLogging(os.Stdout)
		return
	}
	shutdownFunc = shutdown
}

// SetOutput redirects JSON logging to w. Used by tests.
func SetOutput(w io.Writer) {
	setupJSONLogging(w)
}

func setupJSONLogging(w io.Writer) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: programLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelName(lvl))
				}
			}
			return a
		},
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func setupOTELLogging(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(loggerProvider),
	)

	Logger = slog.New(&levelHandler{level: programLevel, handler: otelHandler})
	slog.SetDefault(Logger)

	return loggerProvider.Shutdown, nil
}

// levelHandler applies the program level to a handler that has none.
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTEL exporter when one is configured.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

// SetLevelFromEnv sets the level from envVarName, or defaultLevel when it
// is unset or invalid.
func SetLevelFromEnv(envVarName string, defaultLevel slog.Level) {
	level, err := ParseLevel(os.Getenv(envVarName))
	if err != nil {
		level = defaultLevel
	}
	programLevel.Set(level)
}

func levelName(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l >= LevelFatal:
		return "FATAL"
	}
	return l.String()
}

func shouldSample() bool {
	rate := errorSampleRate.Load()
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// ============================================================================
// Logging Functions
// ============================================================================

func Trace(msg string, args ...any) {
	Logger.Log(context.Background(), LevelTrace, msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn is sampled by ERROR_SAMPLE_RATE; the counter is not.
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error is sampled by ERROR_SAMPLE_RATE; the counter is not.
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs and exits. Never sampled.
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// ============================================================================
// Counters
// ============================================================================

func ErrorHttp5xx() {
	Total5xxErrors.Add(1)
	TotalErrors.Add(1)
}

func WarnHttp4xx(status int) {
	Total4xxErrors.Add(1)
	TotalWarnings.Add(1)
	if status == 409 {
		Total409Errors.Add(1)
	}
}

func WarnSlowRequest() {
	SlowRequests.Add(1)
	TotalWarnings.Add(1)
}

// RecordUpstreamFailure counts a failed call to the prediction service.
func RecordUpstreamFailure() {
	UpstreamFailures.Add(1)
}

// RecordOutcome counts a completed prediction.
func RecordOutcome(high bool) {
	PredictionsTotal.Add(1)
	if high {
		HighRiskOutcomes.Add(1)
	} else {
		LowRiskOutcomes.Add(1)
	}
}

// Snapshot returns the current counter values keyed by name.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"errors":            TotalErrors.Load(),
		"warnings":          TotalWarnings.Load(),
		"http_5xx":          Total5xxErrors.Load(),
		"http_4xx":          Total4xxErrors.Load(),
		"http_409":          Total409Errors.Load(),
		"slow_requests":     SlowRequests.Load(),
		"upstream_failures": UpstreamFailures.Load(),
		"predictions":       PredictionsTotal.Load(),
		"high_risk":         HighRiskOutcomes.Load(),
		"low_risk":          LowRiskOutcomes.Load(),
	}
}
