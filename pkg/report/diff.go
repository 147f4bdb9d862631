package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffStats counts changed lines.
type DiffStats struct {
	Added   int
	Removed int
}

// Changed reports whether any line differs.
func (s DiffStats) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

// Diff compares two documents line by line. Removed lines are prefixed with
// "-", added lines with "+" and unchanged lines are omitted. With colored
// set, removals are red and additions green.
func Diff(expected, actual string, colored bool) (string, DiffStats) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(ensureNewline(expected), ensureNewline(actual))

	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	if !colored {
		removed.DisableColor()
		added.DisableColor()
	}

	var (
		sb    strings.Builder
		stats DiffStats
	)

	for _, diff := range diffs {
		for _, line := range splitLines(diff.Text) {
			switch diff.Type {
			case diffmatchpatch.DiffDelete:
				stats.Removed++

				sb.WriteString(removed.Sprintf("-%s", line))
				sb.WriteByte('\n')
			case diffmatchpatch.DiffInsert:
				stats.Added++

				sb.WriteString(added.Sprintf("+%s", line))
				sb.WriteByte('\n')
			case diffmatchpatch.DiffEqual:
			}
		}
	}

	return sb.String(), stats
}

// Summary describes diff stats in one line.
func (s DiffStats) Summary() string {
	return fmt.Sprintf("%d line(s) added, %d line(s) removed", s.Added, s.Removed)
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}

	return s + "\n"
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
