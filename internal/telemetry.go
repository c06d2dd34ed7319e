// Package internal contains the telemetry utilities shared across the library.
package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopePrefix = "github.com/FerroO2000/cpy/"

var (
	logLevel = &slog.LevelVar{}

	consoleMux     sync.RWMutex
	consoleHandler slog.Handler = newConsoleHandler(os.Stderr)

	otelLogsEnabled atomic.Bool
)

func newConsoleHandler(out *os.File) slog.Handler {
	noColor := !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd())

	return tint.NewHandler(colorable.NewColorable(out), &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

// SetLogLevel sets the minimum level of the console logs.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLogOutput redirects the console logs to the given writer.
// Colors are never used when writing to something other than a file.
func SetLogOutput(w io.Writer) {
	consoleMux.Lock()
	defer consoleMux.Unlock()

	if f, ok := w.(*os.File); ok {
		consoleHandler = newConsoleHandler(f)
		return
	}

	consoleHandler = tint.NewHandler(w, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	})
}

// EnableOTelLogs states whether the log records are also bridged
// to the global OpenTelemetry logger provider.
func EnableOTelLogs(enabled bool) {
	otelLogsEnabled.Store(enabled)
}

// Telemetry groups the logger, the tracer and the meter of a component.
type Telemetry struct {
	kind string
	name string

	logger     *slog.Logger
	otelLogger *slog.Logger

	tracer trace.Tracer
	meter  metric.Meter

	regMux        sync.Mutex
	registrations []metric.Registration
}

// NewTelemetry returns the telemetry of the component of the given kind and name.
func NewTelemetry(kind, name string) *Telemetry {
	scope := scopePrefix + kind

	consoleMux.RLock()
	handler := consoleHandler
	consoleMux.RUnlock()

	attrs := []any{"kind", kind, "name", name}

	return &Telemetry{
		kind: kind,
		name: name,

		logger:     slog.New(handler).With(attrs...),
		otelLogger: otelslog.NewLogger(scope).With(attrs...),

		tracer: otel.Tracer(scope),
		meter:  otel.Meter(scope),
	}
}

func (t *Telemetry) log(level slog.Level, msg string, args ...any) {
	ctx := context.Background()

	t.logger.Log(ctx, level, msg, args...)

	if otelLogsEnabled.Load() {
		t.otelLogger.Log(ctx, level, msg, args...)
	}
}

// LogDebug logs a debug message.
func (t *Telemetry) LogDebug(msg string, args ...any) {
	t.log(slog.LevelDebug, msg, args...)
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.log(slog.LevelInfo, msg, args...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.log(slog.LevelWarn, msg, args...)
}

// LogError logs an error message.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.log(slog.LevelError, msg, append(args, tint.Err(err))...)
}

// DebugEnabled states whether debug messages are going to be emitted.
// It is used to avoid building the arguments of hot path debug logs.
func (t *Telemetry) DebugEnabled() bool {
	return t.logger.Enabled(context.Background(), slog.LevelDebug)
}

// NewTrace starts a new span.
func (t *Telemetry) NewTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, t.name+": "+name)
}

func (t *Telemetry) metricName(name string) string {
	return t.kind + "." + t.name + "." + name
}

func (t *Telemetry) register(inst metric.Observable, observe func(context.Context, metric.Observer) error) {
	reg, err := t.meter.RegisterCallback(observe, inst)
	if err != nil {
		t.LogError("failed to register metric callback", err)
		return
	}

	t.regMux.Lock()
	t.registrations = append(t.registrations, reg)
	t.regMux.Unlock()
}

// NewCounter creates a new monotonic counter whose value is read from the callback.
func (t *Telemetry) NewCounter(name string, callback func() int64) {
	counter, err := t.meter.Int64ObservableCounter(t.metricName(name))
	if err != nil {
		t.LogError("failed to create counter", err, "metric", name)
		return
	}

	t.register(counter, func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(counter, callback())
		return nil
	})
}

// NewUpDownCounter creates a new up/down counter whose value is read from the callback.
func (t *Telemetry) NewUpDownCounter(name string, callback func() int64) {
	counter, err := t.meter.Int64ObservableUpDownCounter(t.metricName(name))
	if err != nil {
		t.LogError("failed to create up/down counter", err, "metric", name)
		return
	}

	t.register(counter, func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(counter, callback())
		return nil
	})
}

// Close unregisters the metric callbacks.
func (t *Telemetry) Close() {
	t.regMux.Lock()
	defer t.regMux.Unlock()

	for _, reg := range t.registrations {
		if err := reg.Unregister(); err != nil {
			t.LogError("failed to unregister metric callback", err)
		}
	}

	t.registrations = nil
}
