package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	UpstreamRequestsTotal    metric.Int64Counter
	UpstreamErrorsTotal      metric.Int64Counter
	UpstreamDurationSeconds  metric.Float64Histogram
	SchemaRepairsTotal       metric.Int64Counter
	PartialItinerariesTotal  metric.Int64Counter
	ItineraryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the instruments ONLY ONCE from the global MeterProvider.
// Call it after the provider is installed; before that otel hands out no-op instruments.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("NomadPlanner")
		var err error
		m := &AppMetrics{}

		m.UpstreamRequestsTotal, err = meter.Int64Counter(
			"upstream_requests_total",
			metric.WithDescription("Total number of calls made to external providers"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_requests_total: %v", err)
		}

		m.UpstreamErrorsTotal, err = meter.Int64Counter(
			"upstream_errors_total",
			metric.WithDescription("Total number of failed provider calls after retries"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_errors_total: %v", err)
		}

		m.UpstreamDurationSeconds, err = meter.Float64Histogram(
			"upstream_duration_seconds",
			metric.WithDescription("Duration of provider calls in seconds, retries included"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_duration_seconds: %v", err)
		}

		m.SchemaRepairsTotal, err = meter.Int64Counter(
			"schema_repairs_total",
			metric.WithDescription("Total number of repair re-prompts sent to the language model"),
			metric.WithUnit("{repair}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create schema_repairs_total: %v", err)
		}

		m.PartialItinerariesTotal, err = meter.Int64Counter(
			"partial_itineraries_total",
			metric.WithDescription("Total number of itineraries returned with degraded inputs"),
			metric.WithUnit("{itinerary}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create partial_itineraries_total: %v", err)
		}

		m.ItineraryDurationSeconds, err = meter.Float64Histogram(
			"itinerary_generation_duration_seconds",
			metric.WithDescription("Duration of a full itinerary generation in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_generation_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
