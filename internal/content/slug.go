package content

import (
	"strings"
	"unicode"
)

// Slugify converts a title into a URL slug. It keeps unicode letters and
// digits (Persian/Arabic titles stay readable), replaces whitespace and
// underscores with dashes, and collapses repeated dashes.
func Slugify(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r) || r == '_' || r == '-':
			b.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}

// EnsureSlug returns the existing slug when the editor typed one, otherwise
// a slug generated from the title. Never overwrites a non-empty slug.
func EnsureSlug(existing, title string) string {
	if s := strings.TrimSpace(existing); s != "" {
		return s
	}
	return Slugify(title)
}
