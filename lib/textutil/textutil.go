package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Sanitize strips control characters and collapses runs of whitespace.
// Extracted portal text tends to carry both.
func Sanitize(s string) string {
	var out strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		out.WriteRune(r)
	}
	cleaned := whitespaceRegex.ReplaceAllString(out.String(), " ")
	return strings.TrimSpace(cleaned)
}

// IsAlphaToken reports whether a token is purely alphabetic and longer
// than one rune.
func IsAlphaToken(tok string) bool {
	runes := []rune(tok)
	if len(runes) < 2 {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// PlainFraction returns the fraction of characters in s that are
// alphanumeric or whitespace. Returns 0 for an empty string.
func PlainFraction(s string) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	plain := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			plain++
		}
	}
	return float64(plain) / float64(len(runes))
}
