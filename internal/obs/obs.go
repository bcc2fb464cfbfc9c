// Package obs provides the observability seams shared by the ingestion
// pipeline, indexer, and query engine: a structured logger, a metrics sink,
// and a clock, so request handling stays synchronous and testable.
//
// Grounded on manifold's internal/rag/service (options.go's Clock/Logger/
// Metrics interfaces) and internal/rag/obs/metrics.go's OtelMetrics/
// MockMetrics pair, adapted from per-tenant labels to this system's
// per-document/per-stage labels.
package obs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/intelligencedev/ragcore/internal/observability"
)

// Clock abstracts time so pipeline/indexer/query tests can control it.
type Clock interface{ Now() time.Time }

// SystemClock implements Clock using time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Logger is the minimal structured-logging seam satisfied by a zerolog
// adapter in production and a recording fake in tests.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)
}

// Metrics is the counters/histograms seam. Labels are small, fixed string
// maps (stage name, document id) following the teacher's label shape.
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
}

// NoopMetrics discards everything; used where metrics are not wired.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)                {}
func (NoopMetrics) ObserveHistogram(string, float64, map[string]string) {}

// NoopLogger discards everything; used where a Logger is not wired.
type NoopLogger struct{}

func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
func (NoopLogger) Debug(string, map[string]any) {}

// ZerologLogger adapts github.com/rs/zerolog to the Logger interface,
// enriching each line with the trace id from ctx when present.
type ZerologLogger struct {
	Base *zerolog.Logger
}

// NewZerologLogger builds a Logger from the ambient trace-aware zerolog
// logger (observability.LoggerWithTrace), falling back to the process
// global logger when ctx carries no trace.
func NewZerologLogger(ctx context.Context) ZerologLogger {
	return ZerologLogger{Base: observability.LoggerWithTrace(ctx)}
}

func (z ZerologLogger) Info(msg string, fields map[string]any) {
	z.Base.Info().Fields(fields).Msg(msg)
}

func (z ZerologLogger) Error(msg string, fields map[string]any) {
	z.Base.Error().Fields(fields).Msg(msg)
}

func (z ZerologLogger) Debug(msg string, fields map[string]any) {
	z.Base.Debug().Fields(fields).Msg(msg)
}

// OtelMetrics adapts go.opentelemetry.io/otel/metric to Metrics, caching
// instruments by name under a mutex the way the teacher's OtelMetrics does.
type OtelMetrics struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOtelMetrics constructs an OtelMetrics using the named global meter.
func NewOtelMetrics(meterName string) *OtelMetrics {
	return &OtelMetrics{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (o *OtelMetrics) IncCounter(name string, labels map[string]string) {
	c, ok := o.getCounter(name)
	if !ok {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(toAttrs(labels)...))
}

func (o *OtelMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	h, ok := o.getHistogram(name)
	if !ok {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func (o *OtelMetrics) getCounter(name string) (metric.Int64Counter, bool) {
	o.mu.RLock()
	c, ok := o.counters[name]
	o.mu.RUnlock()
	if ok {
		return c, true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok = o.counters[name]; ok {
		return c, true
	}
	ctr, err := o.meter.Int64Counter(name)
	if err != nil {
		return ctr, false
	}
	o.counters[name] = ctr
	return ctr, true
}

func (o *OtelMetrics) getHistogram(name string) (metric.Float64Histogram, bool) {
	o.mu.RLock()
	h, ok := o.histograms[name]
	o.mu.RUnlock()
	if ok {
		return h, true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok = o.histograms[name]; ok {
		return h, true
	}
	hist, err := o.meter.Float64Histogram(name)
	if err != nil {
		return hist, false
	}
	o.histograms[name] = hist
	return hist, true
}

func toAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}

// MillisSince returns the elapsed time since t in milliseconds, for
// per-stage histogram observations.
func MillisSince(clock Clock, t time.Time) float64 {
	return float64(clock.Now().Sub(t) / time.Millisecond)
}
