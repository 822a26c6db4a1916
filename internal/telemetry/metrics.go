package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/wolfeidau/gamekit"
	tracerName = "github.com/wolfeidau/gamekit"
)

// Metrics holds the build pipeline instruments. Without InitTelemetry the
// global no-op provider backs them.
type Metrics struct {
	// Task metrics
	TasksTotal       metric.Int64Counter
	TaskErrorsTotal  metric.Int64Counter
	TaskDuration     metric.Float64Histogram
	CompileBytes     metric.Int64Histogram
	CompileErrors    metric.Int64Counter
	LintViolations   metric.Int64Counter
	FilesCopiedTotal metric.Int64Counter
	FilesSkipped     metric.Int64Counter

	// Dev server metrics
	ReloadsTotal  metric.Int64Counter
	ReloadClients metric.Int64UpDownCounter
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

	m.TasksTotal, _ = meter.Int64Counter(
		"gamekit.tasks.total",
		metric.WithDescription("Total number of pipeline tasks run"),
		metric.WithUnit("{task}"),
	)

	m.TaskErrorsTotal, _ = meter.Int64Counter(
		"gamekit.tasks.errors.total",
		metric.WithDescription("Total number of pipeline tasks that failed"),
		metric.WithUnit("{error}"),
	)

	m.TaskDuration, _ = meter.Float64Histogram(
		"gamekit.tasks.duration",
		metric.WithDescription("Duration of pipeline tasks"),
		metric.WithUnit("ms"),
	)

	m.CompileBytes, _ = meter.Int64Histogram(
		"gamekit.compile.bundle.size",
		metric.WithDescription("Size of the written bundle"),
		metric.WithUnit("By"),
	)

	m.CompileErrors, _ = meter.Int64Counter(
		"gamekit.compile.errors.total",
		metric.WithDescription("Total number of bundler error messages"),
		metric.WithUnit("{message}"),
	)

	m.LintViolations, _ = meter.Int64Counter(
		"gamekit.lint.violations.total",
		metric.WithDescription("Total number of lint violations reported"),
		metric.WithUnit("{violation}"),
	)

	m.FilesCopiedTotal, _ = meter.Int64Counter(
		"gamekit.dependencies.copied.total",
		metric.WithDescription("Total number of dependency files written"),
		metric.WithUnit("{file}"),
	)

	m.FilesSkipped, _ = meter.Int64Counter(
		"gamekit.dependencies.skipped.total",
		metric.WithDescription("Total number of unchanged dependency files skipped"),
		metric.WithUnit("{file}"),
	)

	m.ReloadsTotal, _ = meter.Int64Counter(
		"gamekit.devserver.reloads.total",
		metric.WithDescription("Total number of live reload broadcasts"),
		metric.WithUnit("{reload}"),
	)

	m.ReloadClients, _ = meter.Int64UpDownCounter(
		"gamekit.devserver.clients.active",
		metric.WithDescription("Number of connected live reload clients"),
		metric.WithUnit("{client}"),
	)

	return m
}
