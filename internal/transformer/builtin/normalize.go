// Package builtin contains the reusable transformers and value coercion
// helpers used to clean raw product and user payloads.
package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"omnicart/pkg/records"
)

const nbsp = "\u00a0"

// Normalize cleans every string value in place: NO-BREAK SPACE becomes a
// plain space, edges are trimmed, and the result is NFC-composed so that
// visually identical usernames and categories group together. Nested
// objects and arrays (e.g. rating, name) are walked as well.
type Normalize struct{}

// Apply implements transformer.Transformer.
func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		normalizeObject(r)
	}
	return in
}

func normalizeObject(m map[string]any) {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return NormalizeString(t)
	case records.Record:
		normalizeObject(t)
		return t
	case map[string]any:
		normalizeObject(t)
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeValue(e)
		}
		return t
	default:
		return v
	}
}

// NormalizeString applies the Normalize rules to a single string.
func NormalizeString(s string) string {
	if strings.Contains(s, nbsp) {
		s = strings.ReplaceAll(s, nbsp, " ")
	}
	if HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	return s
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
