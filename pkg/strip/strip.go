// Package strip removes the per-file boilerplate that becomes invalid once
// several source files are merged into one: the version pragma and the
// import lines.
package strip

import (
	"regexp"
	"strings"
	"sync"
)

// anyDialect matches the dialect word of a pragma when no dialect is pinned.
const anyDialect = `[A-Za-z_]\w*`

const (
	pragmaTemplate = `(?m)^\s*pragma\s+%s\s+(.*?)\s*;`
	importPattern  = `(?m)^\s*import\s+.*$`
)

var (
	importRe = regexp.MustCompile(importPattern)

	// pragmaCache holds compiled pragma expressions keyed by dialect.
	pragmaCache sync.Map
)

// Stripper strips boilerplate for one pragma dialect.
// The zero value accepts any dialect word.
type Stripper struct {
	// Dialect is the word after "pragma", e.g. "solidity". Empty matches any.
	Dialect string
}

// Strip removes the first line-anchored pragma of any dialect and every
// line-anchored import, then trims surrounding whitespace.
func Strip(content string) string {
	return Stripper{}.Strip(content)
}

// Strip removes the first line-anchored pragma of the stripper's dialect and
// every line-anchored import, then trims surrounding whitespace.
func (s Stripper) Strip(content string) string {
	pragmaRe := s.pragma()

	if loc := pragmaRe.FindStringIndex(content); loc != nil {
		content = content[:loc[0]] + content[loc[1]:]
	}

	content = importRe.ReplaceAllString(content, "")

	return strings.TrimSpace(content)
}

// DeclaredVersion returns the version expression of the first pragma the
// stripper would remove.
func (s Stripper) DeclaredVersion(content string) (string, bool) {
	match := s.pragma().FindStringSubmatch(content)
	if match == nil {
		return "", false
	}

	return match[1], true
}

// Imports returns the import lines Strip would remove, trimmed, in order.
func (s Stripper) Imports(content string) []string {
	found := importRe.FindAllString(content, -1)

	lines := make([]string, len(found))
	for i, line := range found {
		lines[i] = strings.TrimSpace(line)
	}

	return lines
}

func (s Stripper) pragma() *regexp.Regexp {
	if cached, ok := pragmaCache.Load(s.Dialect); ok {
		re, isRe := cached.(*regexp.Regexp)
		if isRe {
			return re
		}
	}

	dialect := anyDialect
	if s.Dialect != "" {
		dialect = regexp.QuoteMeta(s.Dialect)
	}

	re := regexp.MustCompile(strings.Replace(pragmaTemplate, "%s", dialect, 1))
	actual, _ := pragmaCache.LoadOrStore(s.Dialect, re)

	stored, isRe := actual.(*regexp.Regexp)
	if !isRe {
		return re
	}

	return stored
}
