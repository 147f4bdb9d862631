// Package importparse extracts the import paths of a source file. Solidity
// files are parsed with tree-sitter; other files fall back to a line-based
// pattern.
package importparse

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/solidity"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
)

// LanguageSolidity is the language name reported for Solidity sources.
const LanguageSolidity = "Solidity"

const (
	solidityExt = ".sol"

	nodeImportDirective = "import_directive"
	nodeString          = "string"

	spanExtract = "import.extract"
)

// Sentinel errors.
var (
	// ErrParse indicates tree-sitter could not produce a syntax tree.
	ErrParse = errors.New("parse source")
	// errPoolType indicates the parser pool returned an unexpected value.
	errPoolType = errors.New("unexpected parser pool type")
)

// importRe matches `import "x";`, `import "x" as y;`, `import * as y from "x";`
// and `import {a, b} from "x";`, the braces possibly spanning lines.
var importRe = regexp.MustCompile(`(?m)^\s*import\s+(?:[^"';]*?\s*from\s+)?["']([^"']+)["']`)

// Parser extracts imports. It is safe for concurrent use.
type Parser struct {
	language *sitter.Language
	pool     sync.Pool
	tracer   trace.Tracer
}

// NewParser creates a Parser. A nil tracer provider uses the global one.
func NewParser(tp trace.TracerProvider) *Parser {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	lang := sitter.NewLanguage(solidity.GetLanguage())

	p := &Parser{
		language: lang,
		tracer:   tp.Tracer(observability.ImportParseTracerName),
	}

	p.pool = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	return p
}

// DetectLanguage names the language of a file. The .sol extension is
// authoritative; anything else is left to enry.
func DetectLanguage(filename string, content []byte) string {
	if strings.EqualFold(filepath.Ext(filename), solidityExt) {
		return LanguageSolidity
	}

	return enry.GetLanguage(filepath.Base(filename), content)
}

// Imports returns the file's language and its import paths in source order,
// duplicates kept.
func (p *Parser) Imports(ctx context.Context, filename string, content []byte) (string, []string, error) {
	language := DetectLanguage(filename, content)

	_, span := p.tracer.Start(ctx, spanExtract, trace.WithAttributes(
		attribute.String("import.language", language),
	))
	defer span.End()

	var (
		imports []string
		err     error
	)

	if language == LanguageSolidity {
		imports, err = p.solidityImports(ctx, content)
		if err != nil {
			span.RecordError(err)

			imports = RegexImports(string(content))
		}
	} else {
		imports = RegexImports(string(content))
	}

	span.SetAttributes(attribute.Int("import.count", len(imports)))

	return language, imports, nil
}

func (p *Parser) solidityImports(ctx context.Context, content []byte) ([]string, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, ErrParse
	}

	var imports []string

	for idx := range root.NamedChildCount() {
		child := root.NamedChild(idx)
		if child.Type() != nodeImportDirective {
			continue
		}

		source := findDescendantByType(child, nodeString)
		if source.IsNull() {
			continue
		}

		if path := unquote(nodeText(source, content)); path != "" {
			imports = append(imports, path)
		}
	}

	return imports, nil
}

// RegexImports extracts import paths with a line-anchored pattern.
func RegexImports(content string) []string {
	matches := importRe.FindAllStringSubmatch(content, -1)

	imports := make([]string, 0, len(matches))
	for _, match := range matches {
		imports = append(imports, match[1])
	}

	return imports
}

func findDescendantByType(node sitter.Node, typ string) sitter.Node {
	if node.Type() == typ {
		return node
	}

	for idx := range node.NamedChildCount() {
		if found := findDescendantByType(node.NamedChild(idx), typ); !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}

func nodeText(node sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}
