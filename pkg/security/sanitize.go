// Package security cleans free text typed by tutors and admins before it is
// stored, paid out under, or shown on the admin dashboard.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// Length limits for stored free text.
const (
	MaxNoteLength = 500
	MaxNameLength = 100
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeString trims the input and drops NUL and control characters.
// Newlines and tabs are kept.
func SanitizeString(input string) string {
	return strings.TrimSpace(removeControlCharacters(input))
}

// StripHTMLTags removes every tag and comment, keeping the text between them.
func StripHTMLTags(input string) string {
	return htmlTagPattern.ReplaceAllString(input, "")
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// TruncateString cuts input to at most maxLength runes.
func TruncateString(input string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= maxLength {
		return input
	}
	return string(runes[:maxLength])
}

// SanitizeNote cleans an admin note or rejection reason.
func SanitizeNote(input string) string {
	return TruncateString(SanitizeString(StripHTMLTags(input)), MaxNoteLength)
}

// SanitizeName cleans a single-line name such as a bank account holder.
func SanitizeName(input string) string {
	return TruncateString(NormalizeWhitespace(SanitizeString(StripHTMLTags(input))), MaxNameLength)
}

func removeControlCharacters(input string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
}
