package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/codeflat/pkg/report"
)

func TestDiff_Identical(t *testing.T) {
	t.Parallel()

	out, stats := report.Diff("a\nb", "a\nb", false)
	assert.Empty(t, out)
	assert.False(t, stats.Changed())
}

func TestDiff_Lines(t *testing.T) {
	t.Parallel()

	out, stats := report.Diff("a\nb\nc", "a\nB\nc\nd", false)

	assert.Equal(t, "-b\n+B\n+d\n", out)
	assert.Equal(t, report.DiffStats{Added: 2, Removed: 1}, stats)
	assert.True(t, stats.Changed())
	assert.Equal(t, "2 line(s) added, 1 line(s) removed", stats.Summary())
}

func TestDiff_BlankLine(t *testing.T) {
	t.Parallel()

	out, stats := report.Diff("a\nb\n", "a\n\nb\n", false)

	assert.Equal(t, "+\n", out)
	assert.Equal(t, 1, stats.Added)
}

func TestDiff_FromEmpty(t *testing.T) {
	t.Parallel()

	out, stats := report.Diff("", "x\ny", false)

	assert.Equal(t, "+x\n+y\n", out)
	assert.Equal(t, 2, stats.Added)
}
