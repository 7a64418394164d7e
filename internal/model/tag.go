package model

import (
	"strings"
	"unicode"
)

// Tag is a normalized category label shared across contacts.
type Tag struct {
	ID   string
	Name string
}

// TagCount pairs a tag with the number of contacts carrying it.
type TagCount struct {
	Tag
	Count int
}

// NormalizeTag canonicalizes a tag name: trimmed, lowercased, whitespace
// runs and hyphen runs collapsed to a single hyphen, no leading or trailing
// hyphen. Every layer that stores or compares tag names goes through here.
func NormalizeTag(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))

	pendingDash := false
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsSpace(r) || r == '-' {
			pendingDash = true
			continue
		}
		if pendingDash && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingDash = false
		b.WriteRune(unicode.ToLower(r))
	}

	if b.Len() == 0 {
		return "", &NormalizationError{Input: raw}
	}
	return b.String(), nil
}

// NormalizeTags normalizes and de-duplicates names, preserving first-seen order.
func NormalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name, err := NormalizeTag(r)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
