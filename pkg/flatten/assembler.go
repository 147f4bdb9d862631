package flatten

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/toposort"
)

// Span and metric operation names.
const (
	spanRun      = "flatten.run"
	spanResolve  = "flatten.resolve"
	spanOrder    = "flatten.order"
	spanAssemble = "flatten.assemble"

	opFlatten = "flatten"

	statusOK    = "ok"
	statusError = "error"
)

// ErrUpstreamGraph matches every *UpstreamGraphError via errors.Is.
var ErrUpstreamGraph = errors.New("upstream dependency graph")

// UpstreamGraphError reports that the dependency graph provider failed.
// The provider's error, including context cancellation, is kept intact.
type UpstreamGraphError struct {
	Err error
}

// Error implements the error interface.
func (e *UpstreamGraphError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstreamGraph, e.Err)
}

// Unwrap returns the provider's error.
func (e *UpstreamGraphError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrUpstreamGraph.
func (e *UpstreamGraphError) Is(target error) bool {
	return target == ErrUpstreamGraph
}

// Deps holds injectable dependencies for the Assembler.
// Zero-value fields disable the corresponding signal.
type Deps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Tracer is an optional OTel tracer. Nil disables tracing.
	Tracer trace.Tracer

	// Metrics is an optional RED metrics recorder.
	Metrics *observability.REDMetrics

	// Stats is an optional recorder for per-run flatten statistics.
	Stats *observability.FlattenMetrics
}

// Result is the outcome of one successful run.
type Result struct {
	// Document is the flattened source.
	Document string
	// Files are the graph's files in output order.
	Files []*sourcegraph.FileNode
	// Sections describe each file block, in output order.
	Sections []Section
	// Graph is the graph the provider returned.
	Graph *sourcegraph.Graph
}

// Assembler flattens the graph of a provider with fixed options.
type Assembler struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.REDMetrics
	stats   *observability.FlattenMetrics
}

// NewAssembler creates an Assembler.
func NewAssembler(opts Options, deps Deps) *Assembler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(DefaultToolName)
	}

	return &Assembler{
		opts:    opts.withDefaults(),
		logger:  logger,
		tracer:  tracer,
		metrics: deps.Metrics,
		stats:   deps.Stats,
	}
}

// Options returns the options with defaults applied.
func (a *Assembler) Options() Options {
	return a.opts
}

// Run awaits the provider's graph once, then orders and assembles it.
// A provider failure is returned as *UpstreamGraphError; ordering failures
// are returned unchanged. No partial result is ever returned.
func (a *Assembler) Run(ctx context.Context, provider sourcegraph.Provider) (*Result, error) {
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, spanRun)
	defer span.End()

	if a.metrics != nil {
		decInflight := a.metrics.TrackInflight(ctx, opFlatten)
		defer decInflight()
	}

	result, err := a.run(ctx, provider)

	a.record(ctx, span, start, result, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (a *Assembler) run(ctx context.Context, provider sourcegraph.Provider) (*Result, error) {
	graph, err := a.resolve(ctx, provider)
	if err != nil {
		return nil, err
	}

	_, orderSpan := a.tracer.Start(ctx, spanOrder)

	ordered, err := toposort.Order(graph)
	if err != nil {
		orderSpan.RecordError(err)
		orderSpan.SetStatus(codes.Error, err.Error())
		orderSpan.End()

		return nil, err
	}

	orderSpan.SetAttributes(attribute.Int("flatten.files", len(ordered)))
	orderSpan.End()

	_, assembleSpan := a.tracer.Start(ctx, spanAssemble)
	document, sections := assemble(ordered, a.opts)
	assembleSpan.SetAttributes(attribute.Int("flatten.bytes", len(document)))
	assembleSpan.End()

	return &Result{
		Document: document,
		Files:    ordered,
		Sections: sections,
		Graph:    graph,
	}, nil
}

func (a *Assembler) resolve(ctx context.Context, provider sourcegraph.Provider) (*sourcegraph.Graph, error) {
	ctx, span := a.tracer.Start(ctx, spanResolve)
	defer span.End()

	if provider == nil {
		return nil, &UpstreamGraphError{Err: sourcegraph.ErrNilProvider}
	}

	graph, err := provider.DependencyGraph(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, &UpstreamGraphError{Err: err}
	}

	if graph == nil {
		return nil, &UpstreamGraphError{Err: sourcegraph.ErrNilGraph}
	}

	span.SetAttributes(attribute.Int("flatten.nodes", graph.Len()))

	return graph, nil
}

func (a *Assembler) record(ctx context.Context, span trace.Span, start time.Time, result *Result, err error) {
	elapsed := time.Since(start)
	status := statusOK

	if err != nil {
		status = statusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.ErrorContext(ctx, "flatten failed", "error", err, "duration", elapsed)
	} else {
		a.logger.DebugContext(ctx, "flatten finished",
			"files", len(result.Files),
			"bytes", len(result.Document),
			"duration", elapsed,
		)
	}

	if a.metrics != nil {
		a.metrics.RecordRequest(ctx, opFlatten, status, elapsed)
	}

	stats := observability.FlattenStats{Cycle: errors.Is(err, toposort.ErrCyclicDependency)}
	if result != nil {
		stats.Files = int64(len(result.Files))
		stats.Bytes = int64(len(result.Document))
	}

	a.stats.RecordRun(ctx, stats)
}
