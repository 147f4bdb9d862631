// Package textutil provides small text helpers for loaded source files:
// binary detection, BOM removal and line counting.
package textutil

import (
	"bytes"
	"strings"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// utf8BOM is the UTF-8 byte order mark some editors write at file start.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// TrimBOM drops a leading UTF-8 byte order mark, which would otherwise keep
// a first-line pragma from being line-anchored.
func TrimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// CountLines returns the number of newline-delimited lines in s.
// A non-empty string without a trailing newline counts the last partial line.
func CountLines(s string) int {
	if s == "" {
		return 0
	}

	lines := strings.Count(s, "\n")

	if !strings.HasSuffix(s, "\n") {
		lines++
	}

	return lines
}
