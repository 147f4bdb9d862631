package importparse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/codeflat/pkg/importparse"
)

const tokenSource = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

import "./Math.sol";
import * as Lib from "../lib/Lib.sol";
import {Ownable, Context as Ctx} from '@oz/contracts/Ownable.sol';
import "./Alias.sol" as Alias;

/* import "./Commented.sol"; */

contract Token is Ownable {}
`

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, importparse.LanguageSolidity, importparse.DetectLanguage("Token.sol", nil))
	assert.Equal(t, importparse.LanguageSolidity, importparse.DetectLanguage("dir/TOKEN.SOL", nil))
	assert.Equal(t, "Go", importparse.DetectLanguage("main.go", []byte("package main\n")))
}

func TestRegexImports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "none", content: "contract A {}", want: []string{}},
		{name: "plain", content: `import "./A.sol";`, want: []string{"./A.sol"}},
		{name: "aliased", content: `import "./A.sol" as A;`, want: []string{"./A.sol"}},
		{name: "star", content: `import * as A from "./A.sol";`, want: []string{"./A.sol"}},
		{name: "single quotes", content: `import {A} from './A.sol';`, want: []string{"./A.sol"}},
		{
			name:    "multiline braces",
			content: "import {\n  A,\n  B\n} from \"./AB.sol\";",
			want:    []string{"./AB.sol"},
		},
		{
			name:    "source order with duplicates",
			content: "import \"./B.sol\";\nimport \"./A.sol\";\nimport \"./B.sol\";",
			want:    []string{"./B.sol", "./A.sol", "./B.sol"},
		},
		{name: "not at line start", content: `// import "./A.sol";`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, importparse.RegexImports(tt.content))
		})
	}
}

func TestParser_SolidityImports(t *testing.T) {
	t.Parallel()

	parser := importparse.NewParser(nil)

	language, imports, err := parser.Imports(context.Background(), "Token.sol", []byte(tokenSource))
	require.NoError(t, err)

	assert.Equal(t, importparse.LanguageSolidity, language)
	assert.Equal(t, []string{
		"./Math.sol",
		"../lib/Lib.sol",
		"@oz/contracts/Ownable.sol",
		"./Alias.sol",
	}, imports)
}

func TestParser_NoImports(t *testing.T) {
	t.Parallel()

	parser := importparse.NewParser(nil)

	_, imports, err := parser.Imports(context.Background(), "A.sol", []byte("contract A {}"))
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestParser_NonSolidityUsesPattern(t *testing.T) {
	t.Parallel()

	parser := importparse.NewParser(nil)

	_, imports, err := parser.Imports(context.Background(), "notes.txt", []byte("import \"./A.sol\";\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"./A.sol"}, imports)
}

func TestParser_ConcurrentUse(t *testing.T) {
	t.Parallel()

	parser := importparse.NewParser(nil)

	const workers = 8

	results := make(chan []string, workers)

	for range workers {
		go func() {
			_, imports, err := parser.Imports(context.Background(), "Token.sol", []byte(tokenSource))
			if err != nil {
				results <- nil

				return
			}

			results <- imports
		}()
	}

	for range workers {
		assert.Len(t, <-results, 4)
	}
}

func TestParser_EmitsSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	parser := importparse.NewParser(tp)

	_, _, err := parser.Imports(context.Background(), "Token.sol", []byte(tokenSource))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "import.extract", spans[0].Name)

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}

	assert.Equal(t, importparse.LanguageSolidity, attrs["import.language"])
	assert.Equal(t, int64(4), attrs["import.count"])
}
