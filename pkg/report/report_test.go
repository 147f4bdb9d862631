package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codeflat/pkg/flatten"
	"github.com/Sumatoshi-tech/codeflat/pkg/report"
	"github.com/Sumatoshi-tech/codeflat/pkg/sourcegraph"
)

func sampleReport(t *testing.T) *report.Report {
	t.Helper()

	graph := sourcegraph.NewGraph()
	require.NoError(t, graph.AddNode(sourcegraph.NewFileNode("A.sol",
		"pragma solidity ^0.8.0;\nimport \"./B.sol\";\ncontract A is B {}")))
	require.NoError(t, graph.AddNode(sourcegraph.NewFileNode("B.sol", "pragma solidity ^0.8.0;\ncontract B {}")))
	require.NoError(t, graph.AddNode(sourcegraph.NewFileNode("C.sol", "contract C {}")))
	require.NoError(t, graph.AddDependency("A.sol", "B.sol"))

	result, err := flatten.NewAssembler(flatten.Options{DeclarationVersion: "^0.8.0", ToolVersion: "1.0.0"},
		flatten.Deps{}).Run(context.Background(), sourcegraph.StaticProvider(graph))
	require.NoError(t, err)

	return report.New(result)
}

func TestNew(t *testing.T) {
	t.Parallel()

	rep := sampleReport(t)

	assert.Equal(t, []string{"B.sol", "A.sol", "C.sol"}, rep.Order())
	require.Len(t, rep.Files, 3)
	assert.Equal(t, 1, rep.Files[1].Position)
	assert.Equal(t, []string{"B.sol"}, rep.Files[1].Dependencies)
	assert.Equal(t, 1, rep.Files[1].Imports)
	assert.Equal(t, "^0.8.0", rep.Files[0].DeclaredVersion)
	assert.Positive(t, rep.DocumentBytes)
	assert.Equal(t, rep.Files[0].SourceBytes+rep.Files[1].SourceBytes+rep.Files[2].SourceBytes, rep.SourceBytes)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, format := range report.Formats() {
		parsed, err := report.ParseFormat(strings.ToUpper(string(format)))
		require.NoError(t, err)
		assert.Equal(t, format, parsed)
	}

	_, err := report.ParseFormat("xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestReport_Table(t *testing.T) {
	t.Parallel()

	out := sampleReport(t).Table()

	assert.Contains(t, out, "File")
	assert.Contains(t, out, "A.sol")
	assert.Contains(t, out, "Total: 3 files")
	assert.Less(t, strings.Index(out, "B.sol"), strings.Index(out, "A.sol"))
}

func TestReport_DOT(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `digraph "codeflat" {
  "0 B.sol" -> "1 A.sol"
  "2 C.sol"
}`, sampleReport(t).DOT())
}

func TestReport_JSON(t *testing.T) {
	t.Parallel()

	out, err := sampleReport(t).JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	files, ok := decoded["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 3)

	first, ok := files[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "B.sol", first["global_name"])
	assert.InDelta(t, 0, first["position"], 0)
}

func TestReport_YAML(t *testing.T) {
	t.Parallel()

	out, err := sampleReport(t).YAML()
	require.NoError(t, err)

	var decoded struct {
		Files []struct {
			GlobalName   string   `yaml:"global_name"`
			Dependencies []string `yaml:"dependencies"`
		} `yaml:"files"`
	}

	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Files, 3)
	assert.Equal(t, "A.sol", decoded.Files[1].GlobalName)
	assert.Equal(t, []string{"B.sol"}, decoded.Files[1].Dependencies)
}

func TestReport_Write(t *testing.T) {
	t.Parallel()

	rep := sampleReport(t)

	for _, format := range report.Formats() {
		var buf bytes.Buffer
		require.NoError(t, rep.Write(&buf, format), format)
		assert.True(t, strings.HasSuffix(buf.String(), "\n"), format)
	}

	var buf bytes.Buffer
	require.ErrorIs(t, rep.Write(&buf, report.Format("xml")), report.ErrUnknownFormat)
}
