// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize cleans user-entered text before it is stored. Names
// and titles are plain text: every tag is stripped and entities are decoded
// back to characters, so "Matter &amp; Atoms" is stored as "Matter & Atoms".
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips all markup from s and trims surrounding whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Texts applies Text to every element and returns a new slice.
func Texts(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Text(s)
	}
	return out
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
