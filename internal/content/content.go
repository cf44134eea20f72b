// Package content loads review artifacts and enforces the size ceiling.
package content

import (
	"crypto/sha256"
	"fmt"
	"os"
	"unicode/utf8"
)

// SourceInline marks an artifact supplied directly on the command line or
// over MCP rather than read from a file.
const SourceInline = "inline"

// Artifact is the material under review, bounded and hashed.
type Artifact struct {
	Source       string
	Text         string
	OriginalSize int
	Truncated    bool
	Limit        int
	Hash         string
}

// Load reads an artifact from a file and applies the byte ceiling. Oversized
// content is truncated, never rejected; only an unreadable source fails.
func Load(path string, maxBytes int) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return bound(path, data, maxBytes), nil
}

// FromText wraps inline text as an artifact, applying the same ceiling.
func FromText(text string, maxBytes int) *Artifact {
	return bound(SourceInline, []byte(text), maxBytes)
}

// bound hashes the original bytes, then truncates to maxBytes on a rune
// boundary and appends a marker stating the original size.
func bound(source string, data []byte, maxBytes int) *Artifact {
	h := sha256.Sum256(data)
	a := &Artifact{
		Source:       source,
		OriginalSize: len(data),
		Limit:        maxBytes,
		Hash:         fmt.Sprintf("sha256:%x", h),
	}

	if maxBytes <= 0 || len(data) <= maxBytes {
		a.Text = string(data)
		return a
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	a.Truncated = true
	a.Text = string(data[:cut]) + TruncationMarker(len(data), maxBytes)
	return a
}

// TruncationMarker is appended to truncated content so reviewers and the
// final report can see how much was cut.
func TruncationMarker(originalSize, limit int) string {
	return fmt.Sprintf("\n\n[Content truncated: original size %d bytes exceeds the %d byte limit]", originalSize, limit)
}
