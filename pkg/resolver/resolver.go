// Package resolver builds a dependency graph from source files on disk. It
// starts from entry files, follows their imports breadth first and names
// every file the way the flattened output refers to it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/codeflat/pkg/cache"
	"github.com/Sumatoshi-tech/codeflat/pkg/importparse"
	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
	"github.com/Sumatoshi-tech/codeflat/pkg/textutil"
)

// Sentinel errors.
var (
	// ErrNoEntries indicates the resolver was given no entry files.
	ErrNoEntries = errors.New("no entry files")
	// ErrUnresolvedImport indicates an import path matched no file.
	ErrUnresolvedImport = errors.New("unresolved import")
	// ErrFileTooLarge indicates a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrBinaryFile indicates a file does not look like source text.
	ErrBinaryFile = errors.New("binary file")
)

// Default settings.
const (
	DefaultWorkers     = 4
	DefaultMaxFileSize = 1 << 20
	cacheName          = "content"

	spanLoad = observability.ResolverLoadSpan
	tracerID = "codeflat.resolver"
)

// Config configures a Resolver.
type Config struct {
	// Root is the project directory. Project files are named relative to it.
	Root string
	// Entries are the files to start from, relative to Root or absolute.
	Entries []string
	// Roots are library directories searched for bare imports, relative to
	// Root or absolute.
	Roots []string
	// Remappings rewrite import prefixes before lookup.
	Remappings []Remapping
	// MaxFileSize rejects larger files. Zero uses DefaultMaxFileSize.
	MaxFileSize int64
	// Workers bounds the parallel loads per level. Zero uses DefaultWorkers.
	Workers int
}

// Deps holds optional collaborators.
type Deps struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	// TracerProvider is handed to the import parser.
	TracerProvider trace.TracerProvider
	Cache          *cache.ContentCache
	Stats          *observability.FlattenMetrics
}

// Resolver implements sourcegraph.Provider over the filesystem.
type Resolver struct {
	cfg    Config
	root   string
	roots  []string
	parser *importparse.Parser
	cache  *cache.ContentCache
	logger *slog.Logger
	tracer trace.Tracer
	stats  *observability.FlattenMetrics
}

var _ sourcegraph.Provider = (*Resolver)(nil)

// New creates a Resolver.
func New(cfg Config, deps Deps) (*Resolver, error) {
	if len(cfg.Entries) == 0 {
		return nil, ErrNoEntries
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	r := &Resolver{
		cfg:    cfg,
		root:   root,
		parser: importparse.NewParser(deps.TracerProvider),
		cache:  deps.Cache,
		logger: deps.Logger,
		tracer: deps.Tracer,
		stats:  deps.Stats,
	}

	for _, libRoot := range cfg.Roots {
		r.roots = append(r.roots, r.absolute(libRoot))
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer(tracerID)
	}

	if r.cache == nil {
		r.cache = cache.NewContentCache(cache.DefaultMaxEntries, cache.DefaultMaxBytes)
	}

	return r, nil
}

// Cache returns the content cache shared by all runs of this resolver.
func (r *Resolver) Cache() *cache.ContentCache {
	return r.cache
}

// loaded is one file read from disk together with its raw imports.
type loaded struct {
	node    *sourcegraph.FileNode
	imports []string
}

// pending is a file queued for loading.
type pending struct {
	globalName string
	path       string
	library    string
}

// DependencyGraph implements sourcegraph.Provider. Nodes appear in discovery
// order: entries first, then each level's imports in import order.
func (r *Resolver) DependencyGraph(ctx context.Context) (*sourcegraph.Graph, error) {
	before := r.cache.Stats()

	graph := sourcegraph.NewGraph()
	seen := make(map[string]string)

	level := make([]pending, 0, len(r.cfg.Entries))

	for _, entry := range r.cfg.Entries {
		path := r.absolute(entry)

		item := pending{globalName: r.projectName(path), path: path}
		if _, dup := seen[item.path]; dup {
			continue
		}

		seen[item.path] = item.globalName
		level = append(level, item)
	}

	type importEdge struct{ from, to string }

	var edges []importEdge

	for len(level) > 0 {
		results, err := r.loadLevel(ctx, level)
		if err != nil {
			return nil, err
		}

		var next []pending

		for _, file := range results {
			err = graph.AddNode(file.node)
			if err != nil {
				return nil, err
			}

			for _, spec := range file.imports {
				target, resolveErr := r.resolve(file.node, spec)
				if resolveErr != nil {
					return nil, resolveErr
				}

				if name, known := seen[target.path]; known {
					edges = append(edges, importEdge{from: file.node.GlobalName, to: name})

					continue
				}

				seen[target.path] = target.globalName
				next = append(next, target)
				edges = append(edges, importEdge{from: file.node.GlobalName, to: target.globalName})
			}
		}

		level = next
	}

	for _, edge := range edges {
		err := graph.AddDependency(edge.from, edge.to)
		if err != nil {
			return nil, err
		}
	}

	r.recordCache(ctx, before)

	r.logger.DebugContext(ctx, "dependency graph resolved",
		"files", graph.Len(), "root", r.root)

	return graph, nil
}

// loadLevel reads one BFS level with bounded parallelism. Results keep the
// level's order.
func (r *Resolver) loadLevel(ctx context.Context, level []pending) ([]loaded, error) {
	results := make([]loaded, len(level))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Workers)

	for i, item := range level {
		group.Go(func() error {
			file, err := r.load(groupCtx, item)
			if err != nil {
				return err
			}

			results[i] = file

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (r *Resolver) load(ctx context.Context, item pending) (loaded, error) {
	ctx, span := r.tracer.Start(ctx, spanLoad, trace.WithAttributes(
		attribute.String("resolver.file", item.globalName),
	))
	defer span.End()

	err := ctx.Err()
	if err != nil {
		return loaded{}, fmt.Errorf("load %s: %w", item.globalName, err)
	}

	content, err := r.read(item)
	if err != nil {
		span.RecordError(err)

		return loaded{}, err
	}

	language, imports, err := r.parser.Imports(ctx, item.path, []byte(content))
	if err != nil {
		span.RecordError(err)

		return loaded{}, fmt.Errorf("parse %s: %w", item.globalName, err)
	}

	node := &sourcegraph.FileNode{
		GlobalName:  item.globalName,
		DisplayName: item.globalName,
		Content:     content,
		Path:        item.path,
		Language:    language,
	}

	if item.library != "" {
		if version := packageVersion(item.path, item.library); version != "" {
			node.DisplayName = item.globalName + "@v" + version
		}
	}

	span.SetAttributes(attribute.Int("import.count", len(imports)))

	return loaded{node: node, imports: imports}, nil
}

func (r *Resolver) read(item pending) (string, error) {
	info, err := os.Stat(item.path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", item.globalName, err)
	}

	if info.Size() > r.cfg.MaxFileSize {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d",
			ErrFileTooLarge, item.globalName, info.Size(), r.cfg.MaxFileSize)
	}

	if content, ok := r.cache.Get(item.path, info.ModTime(), info.Size()); ok {
		return content, nil
	}

	data, err := os.ReadFile(item.path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", item.globalName, err)
	}

	if textutil.IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, item.globalName)
	}

	content := string(textutil.TrimBOM(data))

	r.cache.Put(item.path, cache.Entry{Content: content, ModTime: info.ModTime(), Size: info.Size()})

	return content, nil
}

// resolve maps an import path written in from to the file it names.
func (r *Resolver) resolve(from *sourcegraph.FileNode, spec string) (pending, error) {
	if remapped, ok := r.remap(spec); ok {
		if isFile(remapped) {
			return r.classify(remapped, spec), nil
		}

		return pending{}, fmt.Errorf("%w: %q in %s (remapped to %s)",
			ErrUnresolvedImport, spec, from.GlobalName, remapped)
	}

	if isRelative(spec) {
		path := filepath.Join(filepath.Dir(from.Path), filepath.FromSlash(spec))
		if isFile(path) {
			return r.classify(path, ""), nil
		}

		return pending{}, fmt.Errorf("%w: %q in %s", ErrUnresolvedImport, spec, from.GlobalName)
	}

	if path := filepath.Join(r.root, filepath.FromSlash(spec)); isFile(path) {
		return r.classify(path, ""), nil
	}

	for _, libRoot := range r.roots {
		path := filepath.Join(libRoot, filepath.FromSlash(spec))
		if isFile(path) {
			return pending{globalName: spec, path: path, library: libRoot}, nil
		}
	}

	return pending{}, fmt.Errorf("%w: %q in %s", ErrUnresolvedImport, spec, from.GlobalName)
}

// classify names a resolved path. Files inside a library root are named by
// their path below it; everything else by its project path.
func (r *Resolver) classify(path, spec string) pending {
	for _, libRoot := range r.roots {
		if rel, ok := within(libRoot, path); ok {
			return pending{globalName: rel, path: path, library: libRoot}
		}
	}

	if spec != "" && !isRelative(spec) {
		if _, inProject := within(r.root, path); !inProject {
			return pending{globalName: spec, path: path}
		}
	}

	return pending{globalName: r.projectName(path), path: path}
}

func (r *Resolver) remap(spec string) (string, bool) {
	best := -1

	for i, remapping := range r.cfg.Remappings {
		if !strings.HasPrefix(spec, remapping.Prefix) {
			continue
		}

		if best < 0 || len(remapping.Prefix) > len(r.cfg.Remappings[best].Prefix) {
			best = i
		}
	}

	if best < 0 {
		return "", false
	}

	remapping := r.cfg.Remappings[best]
	target := remapping.Target + strings.TrimPrefix(spec, remapping.Prefix)

	return r.absolute(filepath.FromSlash(target)), true
}

func (r *Resolver) projectName(path string) string {
	if rel, ok := within(r.root, path); ok {
		return rel
	}

	return filepath.ToSlash(path)
}

func (r *Resolver) absolute(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(r.root, path)
}

func (r *Resolver) recordCache(ctx context.Context, before cache.Stats) {
	after := r.cache.Stats()

	r.stats.RecordCache(ctx, cacheName, after.Hits-before.Hits, after.Misses-before.Misses)
}

// within returns path relative to dir in slash form when path lies below dir.
func within(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// Entries lists the files with the given extension below dir, sorted.
func Entries(dir, ext string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ext) {
			entries = append(entries, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	slices.Sort(entries)

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoEntries, ext, dir)
	}

	return entries, nil
}
