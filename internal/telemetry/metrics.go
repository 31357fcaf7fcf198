package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/devconf"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Assembly metrics
	AssembleTotal       metric.Int64Counter
	AssembleErrorsTotal metric.Int64Counter
	AssembleDuration    metric.Float64Histogram

	// Bundle metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildOutputsTotal metric.Int64Counter

	// Dev server metrics
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AssembleTotal, _ = meter.Int64Counter(
		"devconf.assemble.total",
		metric.WithDescription("Total number of successful config assemblies"),
		metric.WithUnit("{assembly}"),
	)

	m.AssembleErrorsTotal, _ = meter.Int64Counter(
		"devconf.assemble.errors.total",
		metric.WithDescription("Total number of config assemblies aborted by a resource error"),
		metric.WithUnit("{error}"),
	)

	m.AssembleDuration, _ = meter.Float64Histogram(
		"devconf.assemble.duration",
		metric.WithDescription("Duration of config assembly"),
		metric.WithUnit("ms"),
	)

	m.BuildsTotal, _ = meter.Int64Counter(
		"devconf.builds.total",
		metric.WithDescription("Total number of bundle builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"devconf.builds.errors.total",
		metric.WithDescription("Total number of bundle builds that reported errors"),
		metric.WithUnit("{build}"),
	)

	m.BuildOutputsTotal, _ = meter.Int64Counter(
		"devconf.builds.outputs.total",
		metric.WithDescription("Total number of output files written by builds"),
		metric.WithUnit("{file}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"devconf.http.requests.total",
		metric.WithDescription("Total number of dev server requests"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"devconf.http.request.duration",
		metric.WithDescription("Duration of dev server requests"),
		metric.WithUnit("ms"),
	)

	return m
}
