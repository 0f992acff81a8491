// Package metrics defines the metrics exporter used by procmine and two
// implementations: one writing to a structured logger and a no-op.
package metrics

import "time"

// Exporter exports metrics to a monitoring backend.
type Exporter interface {
	// Counter increments a counter metric.
	Counter(name string, value int64, tags map[string]string)

	// Gauge sets a gauge metric to the specified value.
	Gauge(name string, value float64, tags map[string]string)

	// Timer records a duration.
	Timer(name string, duration time.Duration, tags map[string]string)

	// Flush sends any buffered metrics to the backend.
	Flush() error
}

// Metric names.
const (
	// Extraction
	ExtractRecordsTotal   = "procmine.extract.records.total"
	ExtractMalformedTotal = "procmine.extract.malformed.total"
	ExtractSkippedTotal   = "procmine.extract.skipped.total"
	ExtractTracesTotal    = "procmine.extract.traces.total"
	ExtractDuration       = "procmine.extract.duration"
	ExtractThroughput     = "procmine.extract.throughput"

	// Analysis
	VariantsTotal    = "procmine.variants.total"
	VariantsDuration = "procmine.variants.duration"

	// Sources
	SourcesFailed = "procmine.sources.failed"
)

// Tag names.
const (
	TagSource = "source"
	TagFormat = "format"
	TagPolicy = "policy"
	TagStatus = "status"
)
