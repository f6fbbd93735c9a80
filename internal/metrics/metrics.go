package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/skincare-shop/pkg/config"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Store Metrics
	DBOperationsTotal   metric.Int64Counter
	DBOperationDuration metric.Float64Histogram

	// Business Metrics
	OrdersCreated     metric.Int64Counter
	RevenueTotal      metric.Float64Counter
	CartItemsCount    metric.Int64Gauge
	CartUpdateRetries metric.Int64Counter
	UsersRegistered   metric.Int64Counter
	ProductsCreated   metric.Int64Counter
	ChatAnswers       metric.Int64Counter

	// Service name for adding to all metrics
	serviceName string
}

// InitMetrics builds the meter provider and the application instruments.
// With metrics export disabled the provider has no reader, so recording is
// still safe but nothing leaves the process.
func InitMetrics(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	// Merge resources: explicit attributes take precedence over env
	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTELMetricsEnabled {
		// WithEndpoint expects host:port without a scheme
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.OTELExporterOTLPHeaders != "" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
		}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)))

		log.Info().
			Str("endpoint", cfg.OTELExporterOTLPEndpoint).
			Bool("insecure", cfg.OTELExporterOTLPInsecure).
			Str("service", cfg.OTELServiceName).
			Msg("metrics exporter configured")
	} else {
		log.Info().Msg("metrics export disabled")
	}

	meterProvider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(meterProvider)

	m, err := New(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return m, meterProvider, nil
}

// New creates the application instruments on meter
func New(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.DBOperationsTotal, err = meter.Int64Counter(
		"db.client.operations.count",
		metric.WithDescription("Total number of store operations"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db operations counter: %w", err)
	}

	if m.DBOperationDuration, err = meter.Float64Histogram(
		"db.client.operations.duration",
		metric.WithDescription("Store operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	if m.OrdersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue of created orders"),
		metric.WithUnit("IDR"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Number of lines in the cart after the last update"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.CartUpdateRetries, err = meter.Int64Counter(
		"cart_update_retries_total",
		metric.WithDescription("Conditional cart writes retried after a version conflict"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart retries counter: %w", err)
	}

	if m.UsersRegistered, err = meter.Int64Counter(
		"users_registered_total",
		metric.WithDescription("Total number of registered users"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create users counter: %w", err)
	}

	if m.ProductsCreated, err = meter.Int64Counter(
		"products_created_total",
		metric.WithDescription("Total number of catalog inserts"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create products counter: %w", err)
	}

	if m.ChatAnswers, err = meter.Int64Counter(
		"chat_answers_total",
		metric.WithDescription("Chat answers by matched topic"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create chat answers counter: %w", err)
	}

	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// Attrs is shorthand for a metric option carrying attrs plus service.name
func (m *AppMetrics) Attrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(m.WithServiceName(attrs)...)
}

// RecordDBOperation records store operation metrics
func (m *AppMetrics) RecordDBOperation(ctx context.Context, operation, collection, driver string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	opt := m.Attrs(
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.String("db.system", driver),
		attribute.String("status", status),
	)
	m.DBOperationsTotal.Add(ctx, 1, opt)
	m.DBOperationDuration.Record(ctx, float64(duration), opt)
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
