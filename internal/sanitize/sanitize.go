// Package sanitize turns free text into tokens that are safe to use in file names
// and as identifier values inside the configuration repository.
package sanitize

import (
	"strings"
	"unicode"
)

// Fallback is returned for input that has no usable characters left after sanitizing.
const Fallback = "user"

// Name lower-cases text, replaces whitespace with underscores, drops everything
// outside [a-z0-9_], collapses underscore runs and trims underscores at both ends.
// The result is never empty, and Name(Name(x)) == Name(x).
func Name(text string) string {
	var (
		b          strings.Builder
		underscore bool
	)

	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			r = '_'
		}

		switch {
		case r == '_':
			// collapse runs and skip leading underscores
			if underscore || b.Len() == 0 {
				continue
			}

			underscore = true

			b.WriteRune(r)
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			underscore = false

			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), "_")
	if out == "" {
		return Fallback
	}

	return out
}
