package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal       = "codeflat.flatten.files.total"
	metricOutputBytes      = "codeflat.flatten.output.bytes.total"
	metricCyclesTotal      = "codeflat.flatten.cycles.total"
	metricCacheHitsTotal   = "codeflat.resolver.cache.hits.total"
	metricCacheMissesTotal = "codeflat.resolver.cache.misses.total"

	attrCache = "cache"
)

// FlattenMetrics holds OTel instruments for flatten and resolver statistics.
type FlattenMetrics struct {
	filesTotal  metric.Int64Counter
	outputBytes metric.Int64Counter
	cyclesTotal metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// FlattenStats summarizes one flatten run.
type FlattenStats struct {
	Files int64
	Bytes int64
	Cycle bool
}

// NewFlattenMetrics creates flatten metric instruments from the given meter.
func NewFlattenMetrics(mt metric.Meter) (*FlattenMetrics, error) {
	b := newMetricBuilder(mt)

	fm := &FlattenMetrics{
		filesTotal:  b.counter(metricFilesTotal, "Files written into flattened documents", "{file}"),
		outputBytes: b.counter(metricOutputBytes, "Bytes of flattened output", "By"),
		cyclesTotal: b.counter(metricCyclesTotal, "Flatten runs rejected for a dependency cycle", "{run}"),
		cacheHits:   b.counter(metricCacheHitsTotal, "Resolver content cache hits", "{hit}"),
		cacheMisses: b.counter(metricCacheMissesTotal, "Resolver content cache misses", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return fm, nil
}

// RecordRun records the statistics of one flatten run.
// Safe to call on a nil receiver (no-op).
func (fm *FlattenMetrics) RecordRun(ctx context.Context, stats FlattenStats) {
	if fm == nil {
		return
	}

	fm.filesTotal.Add(ctx, stats.Files)
	fm.outputBytes.Add(ctx, stats.Bytes)

	if stats.Cycle {
		fm.cyclesTotal.Add(ctx, 1)
	}
}

// RecordCache records resolver cache lookups for the named cache.
// Safe to call on a nil receiver (no-op).
func (fm *FlattenMetrics) RecordCache(ctx context.Context, cache string, hits, misses int64) {
	if fm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrCache, cache))
	fm.cacheHits.Add(ctx, hits, attrs)
	fm.cacheMisses.Add(ctx, misses, attrs)
}
