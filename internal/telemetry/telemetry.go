package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/logger"
)

type Config struct {
	Enabled     bool
	ServiceName string            // e.g., "modis-fetcher"
	Exporter    string            // "stdout", "otlp" or "none"
	Endpoint    string            // OTLP endpoint, e.g., "localhost:4317" (required for "otlp")
	Protocol    string            // "grpc" or "http" (default "grpc" for "otlp")
	Insecure    bool              // Disable TLS for OTLP (development only)
	Headers     map[string]string // Custom headers for OTLP, e.g., for auth
	LogFile     string            // Path for JSON logs
	LogLevel    string            // "debug", "info", "warn", "error" (default "info")
}

type exporters struct {
	trace  sdktrace.SpanExporter
	metric sdkmetric.Exporter
	log    log.Exporter
}

// InitOTEL sets up providers, tracer, meter, and returns them + bridged logger.
// With telemetry disabled or the "none" exporter, tracer and meter are no-ops
// and the logger writes to LogFile only.
func InitOTEL(
	cfg Config,
) (trace.Tracer, metric.Meter, *zap.SugaredLogger, func(context.Context) error, error) {
	if !cfg.Enabled || cfg.Exporter == "none" || cfg.Exporter == "" {
		return initNoop(cfg)
	}
	ctx := context.Background()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	exp, err := newExporters(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.trace),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric)),
	)
	otel.SetMeterProvider(mp)

	lp := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exp.log)),
		log.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	level := logger.ParseLevel(cfg.LogLevel)
	var cores []zapcore.Core
	if cfg.LogFile != "" {
		cores = append(cores, logger.FileCore(cfg.LogFile, level))
	}
	cores = append(cores, otelzap.NewCore(
		cfg.ServiceName,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		otelzap.WithVersion("1.0.0"),
	))
	zapLogger := zap.New(zapcore.NewTee(cores...))

	shutdown := func(ctx context.Context) error {
		err := errors.Join(
			tp.Shutdown(ctx),
			lp.Shutdown(ctx),
			mp.Shutdown(ctx),
		)
		_ = zapLogger.Sync()
		return err
	}

	return otel.Tracer(cfg.ServiceName), otel.Meter(cfg.ServiceName), zapLogger.Sugar(), shutdown, nil
}

func initNoop(
	cfg Config,
) (trace.Tracer, metric.Meter, *zap.SugaredLogger, func(context.Context) error, error) {
	lg := logger.NewLogger(cfg.LogFile, cfg.LogLevel)
	shutdown := func(context.Context) error {
		_ = lg.Sync()
		return nil
	}
	return tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
		lg,
		shutdown,
		nil
}

func newExporters(ctx context.Context, cfg Config) (exporters, error) {
	var exp exporters
	var err error
	switch cfg.Exporter {
	case "stdout":
		if exp.trace, err = stdouttrace.New(stdouttrace.WithPrettyPrint()); err != nil {
			return exp, err
		}
		if exp.metric, err = stdoutmetric.New(stdoutmetric.WithPrettyPrint()); err != nil {
			return exp, err
		}
		if exp.log, err = stdoutlog.New(); err != nil {
			return exp, err
		}
		return exp, nil
	case "otlp":
		if cfg.Endpoint == "" {
			return exp, fmt.Errorf("OTLP endpoint required")
		}
		switch cfg.Protocol {
		case "", "grpc":
			return otlpGRPC(ctx, cfg)
		case "http":
			return otlpHTTP(ctx, cfg)
		default:
			return exp, fmt.Errorf("invalid protocol: %s", cfg.Protocol)
		}
	default:
		return exp, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

func otlpGRPC(ctx context.Context, cfg Config) (exporters, error) {
	var exp exporters
	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		traceOpts = append(traceOpts, otlptracegrpc.WithHeaders(cfg.Headers))
		metricOpts = append(metricOpts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		logOpts = append(logOpts, otlploggrpc.WithHeaders(cfg.Headers))
	}

	var err error
	if exp.trace, err = otlptrace.New(ctx, otlptracegrpc.NewClient(traceOpts...)); err != nil {
		return exp, err
	}
	if exp.metric, err = otlpmetricgrpc.New(ctx, metricOpts...); err != nil {
		return exp, err
	}
	if exp.log, err = otlploggrpc.New(ctx, logOpts...); err != nil {
		return exp, err
	}
	return exp, nil
}

func otlpHTTP(ctx context.Context, cfg Config) (exporters, error) {
	var exp exporters
	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	logOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(cfg.Headers))
		metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(cfg.Headers))
		logOpts = append(logOpts, otlploghttp.WithHeaders(cfg.Headers))
	}

	var err error
	if exp.trace, err = otlptrace.New(ctx, otlptracehttp.NewClient(traceOpts...)); err != nil {
		return exp, err
	}
	if exp.metric, err = otlpmetrichttp.New(ctx, metricOpts...); err != nil {
		return exp, err
	}
	if exp.log, err = otlploghttp.New(ctx, logOpts...); err != nil {
		return exp, err
	}
	return exp, nil
}
