package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/FerroO2000/cpy/internal"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "cpy"
	serviceVersion = "0.1.0"
)

var traceRatio = 0.05

// isCollectorReachable checks if the OTLP collector port is reachable
func isCollectorReachable(endpoint string) bool {
	conn, err := net.DialTimeout("tcp", endpoint, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// initTelemetry installs the OpenTelemetry providers exporting to the collector
// at the given endpoint. If the collector is not reachable, a warning is logged
// and the no-op providers are kept. The returned function flushes and shuts
// down the providers.
func initTelemetry(ctx context.Context, endpoint string) (func(), error) {
	tel := internal.NewTelemetry("cmd", "telemetry")

	if !isCollectorReachable(endpoint) {
		tel.LogWarn("OpenTelemetry collector is not reachable", "endpoint", endpoint)
		return func() {}, nil
	}

	grpcTransport := grpc.WithTransportCredentials(insecure.NewCredentials())
	grpcConn, err := grpc.NewClient(endpoint, grpcTransport)
	if err != nil {
		return nil, fmt.Errorf("otel: grpc client: %w", err)
	}

	res, err := newResource(ctx)
	if err != nil {
		grpcConn.Close()
		return nil, err
	}

	// Trace
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(grpcConn))
	if err != nil {
		grpcConn.Close()
		return nil, fmt.Errorf("otel: trace exporter: %w", err)
	}
	tracerProvider := newTracerProvider(res, traceExporter)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Meter
	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(grpcConn))
	if err != nil {
		grpcConn.Close()
		return nil, fmt.Errorf("otel: metric exporter: %w", err)
	}
	meterProvider := newMeterProvider(res, metricExporter)
	otel.SetMeterProvider(meterProvider)

	// Log
	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(grpcConn))
	if err != nil {
		grpcConn.Close()
		return nil, fmt.Errorf("otel: log exporter: %w", err)
	}
	loggerProvider := newLoggerProvider(res, logExporter)
	global.SetLoggerProvider(loggerProvider)
	internal.EnableOTelLogs(true)

	// Runtime
	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		tel.LogWarn("failed to start runtime instrumentation", "reason", err.Error())
	}

	tel.LogInfo("OpenTelemetry enabled", "endpoint", endpoint)

	shutdown := func() {
		internal.EnableOTelLogs(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := errors.Join(
			tracerProvider.Shutdown(shutdownCtx),
			meterProvider.Shutdown(shutdownCtx),
			loggerProvider.Shutdown(shutdownCtx),
			grpcConn.Close(),
		)
		if err != nil {
			tel.LogError("failed to shut down OpenTelemetry", err)
		}
	}

	return shutdown, nil
}

func newResource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel: resource: %w", err)
	}

	return res, nil
}

func newTracerProvider(res *resource.Resource, exporter *otlptrace.Exporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(traceRatio)),
	)
}

func newMeterProvider(res *resource.Resource, exporter sdkmetric.Exporter) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Second)),
		),
	)
}

func newLoggerProvider(res *resource.Resource, exporter sdklog.Exporter) *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
}
