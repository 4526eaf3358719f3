// Package pdftext extracts plain text from syllabus PDFs. Two engines
// with different parsing approaches run on every document and the
// higher-scoring output wins; a low score is still returned, with its
// score, so callers can flag the document for manual review instead of
// losing it.
package pdftext

import (
	"errors"
	"fmt"
	"log/slog"
)

// EngineLayout reconstructs text in reading order from the page layout.
const EngineLayout = "layout"

// EngineContent walks the raw content streams.
const EngineContent = "content"

var ErrNoText = errors.New("no engine extracted any text")

type Extraction struct {
	Text       string
	Confidence float64
	Engine     string
}

type engine struct {
	name    string
	extract func(data []byte) (string, error)
}

var engines = []engine{
	{name: EngineLayout, extract: extractLayout},
	{name: EngineContent, extract: extractContent},
}

// ExtractBest runs both engines on the document and returns the
// higher-confidence output. Ties go to the earlier engine, so the
// choice is deterministic for identical input.
func ExtractBest(data []byte) (Extraction, error) {
	return bestOf(data, engines)
}

func bestOf(data []byte, engines []engine) (Extraction, error) {
	var best Extraction
	var errs []error
	found := false

	for _, eng := range engines {
		text, err := eng.extract(data)
		if err != nil {
			slog.Debug("extraction engine failed", "engine", eng.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", eng.name, err))
			continue
		}
		candidate := Extraction{
			Text:       text,
			Confidence: Score(text),
			Engine:     eng.name,
		}
		if !found || candidate.Confidence > best.Confidence {
			best = candidate
			found = true
		}
	}

	if !found {
		return Extraction{}, fmt.Errorf("%w: %w", ErrNoText, errors.Join(errs...))
	}
	return best, nil
}
