package resolver

import (
	"strings"
	"unicode"
)

// DefaultSubstitute replaces characters that cannot appear in a path segment.
const DefaultSubstitute = '_'

// reserved lists characters rejected in file names on at least one
// supported platform, plus both path separators.
const reserved = `<>:"/\|?*`

// Sanitizer makes tag values safe to use as (part of) a single path segment.
// It is applied to resolved tag values only, never to literal pattern text.
type Sanitizer struct {
	Substitute rune
}

// DefaultSanitizer substitutes with DefaultSubstitute.
func DefaultSanitizer() Sanitizer {
	return Sanitizer{Substitute: DefaultSubstitute}
}

// Clean trims surrounding whitespace, then replaces spaces, control
// characters and reserved characters with the substitute. A value that
// would otherwise read as "." or ".." has its dots replaced as well.
func (s Sanitizer) Clean(value string) string {
	sub := s.Substitute
	if sub == 0 {
		sub = DefaultSubstitute
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsControl(r) || strings.ContainsRune(reserved, r) {
			return sub
		}
		return r
	}, strings.TrimSpace(value))

	if cleaned == "." || cleaned == ".." {
		cleaned = strings.Repeat(string(sub), len(cleaned))
	}
	return cleaned
}
