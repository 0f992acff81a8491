package metrics

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// LogMetrics writes metrics as structured log records.
type LogMetrics struct {
	mu         sync.Mutex
	logger     *slog.Logger
	level      slog.Level
	buffer     []slog.Record
	bufferSize int
}

// LogMetricsOption configures LogMetrics.
type LogMetricsOption func(*LogMetrics)

// WithLevel sets the level metric records are logged at.
func WithLevel(level slog.Level) LogMetricsOption {
	return func(m *LogMetrics) {
		m.level = level
	}
}

// WithBufferSize batches records until size of them are pending.
func WithBufferSize(size int) LogMetricsOption {
	return func(m *LogMetrics) {
		m.bufferSize = size
	}
}

// NewLogMetrics creates a log-based metrics exporter.
func NewLogMetrics(logger *slog.Logger, opts ...LogMetricsOption) *LogMetrics {
	m := &LogMetrics{
		logger: logger.With("component", "metrics"),
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Counter logs a counter metric.
func (m *LogMetrics) Counter(name string, value int64, tags map[string]string) {
	m.log("counter", name, slog.Int64("value", value), tags)
}

// Gauge logs a gauge metric.
func (m *LogMetrics) Gauge(name string, value float64, tags map[string]string) {
	m.log("gauge", name, slog.Float64("value", value), tags)
}

// Timer logs a timer metric.
func (m *LogMetrics) Timer(name string, duration time.Duration, tags map[string]string) {
	m.log("timer", name, slog.Duration("value", duration), tags)
}

// Flush outputs any buffered metrics.
func (m *LogMetrics) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()
	return nil
}

func (m *LogMetrics) flushLocked() {
	for _, r := range m.buffer {
		m.logger.Handler().Handle(context.Background(), r)
	}
	m.buffer = nil
}

func (m *LogMetrics) log(kind, name string, value slog.Attr, tags map[string]string) {
	r := slog.NewRecord(time.Now(), m.level, "metric", 0)
	r.AddAttrs(slog.String("type", kind), slog.String("name", name), value)
	if len(tags) > 0 {
		r.AddAttrs(slog.Attr{Key: "tags", Value: tagGroup(tags)})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.logger.Enabled(context.Background(), m.level) {
		return
	}
	if m.bufferSize <= 0 {
		m.logger.Handler().Handle(context.Background(), r)
		return
	}
	m.buffer = append(m.buffer, r)
	if len(m.buffer) >= m.bufferSize {
		m.flushLocked()
	}
}

// tagGroup renders tags as a group with sorted keys.
func tagGroup(tags map[string]string) slog.Value {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]slog.Attr, len(keys))
	for i, k := range keys {
		attrs[i] = slog.String(k, tags[k])
	}
	return slog.GroupValue(attrs...)
}

var _ Exporter = (*LogMetrics)(nil)
