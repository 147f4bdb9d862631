package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the attribute key prefixes exported on spans.
var allowedPrefixes = []string{
	"codeflat.",
	"flatten.",
	"resolver.",
	"import.",
	"mcp.",
	"error.",
	"http.",
	"exception.",
}

// allowedKeys are exact attribute keys exported on spans.
var allowedKeys = []string{"error", "cache", "hits", "misses"}

// blockedPrefixes are attribute key prefixes that are always stripped.
// File contents can carry secrets; paths can carry user names.
var blockedPrefixes = []string{
	"user.",
	"file.content",
	"flatten.document",
}

// blockedKeys are exact attribute keys that are always stripped.
var blockedKeys = []string{"email", "request.body", "response.body"}

// attributeFilter is a SpanProcessor that strips blocked and unknown
// attributes before forwarding spans to its delegate.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter returns a SpanProcessor that filters span attributes
// against an allow-list. When logger is non-nil, every dropped key is logged
// as a warning (meant for --debug runs).
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a filtered view of the span.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) isAllowed(key string) bool {
	allowed := !isBlocked(key) &&
		(slices.Contains(allowedKeys, key) || hasAnyPrefix(key, allowedPrefixes))

	if !allowed && f.logger != nil {
		f.logger.Warn("attribute blocked by filter", "key", key)
	}

	return allowed
}

func isBlocked(key string) bool {
	return slices.Contains(blockedKeys, key) || hasAnyPrefix(key, blockedPrefixes)
}

func hasAnyPrefix(key string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(prefix string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// filteredSpan is a ReadOnlySpan view exposing only allowed attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

// Attributes returns only the allowed attributes.
func (s *filteredSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	filtered := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if s.filter.isAllowed(string(kv.Key)) {
			filtered = append(filtered, kv)
		}
	}

	return filtered
}
