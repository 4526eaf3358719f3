package pdftext

import (
	"strings"

	"radar-scraping/lib/textutil"
)

const (
	minPlausibleLength = 100
	maxPlausibleLength = 50000
)

// Score estimates how much of the extracted text is readable prose, on
// a 0..1 scale. Garbled extractions tend to fail at least one of the
// three checks: plausible length, mostly plain characters, and tokens
// that look like words rather than glyph soup.
func Score(text string) float64 {
	score := 0.0

	if n := len(text); n >= minPlausibleLength && n <= maxPlausibleLength {
		score += 0.3
	}
	score += 0.4 * textutil.PlainFraction(text)

	tokens := strings.Fields(text)
	if len(tokens) > 0 {
		alpha := 0
		for _, tok := range tokens {
			if textutil.IsAlphaToken(tok) {
				alpha++
			}
		}
		score += 0.3 * float64(alpha) / float64(len(tokens))
	}

	if score > 1 {
		score = 1
	}
	return score
}
