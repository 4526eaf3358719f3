package sigaa

import (
	"regexp"
	"strings"

	"radar-scraping/lib/records"
	"radar-scraping/lib/textutil"
)

// maxBibliographyEntries caps how many references one syllabus can
// contribute. Some documents paste whole reading lists.
const maxBibliographyEntries = 20

// nextHeading terminates a section capture: a newline followed by an
// uppercase heading-looking line that carries a colon.
const nextHeading = `(?:\n\s*(?-i:[A-ZÀ-Ú])[^\n]*:|$)`

// sectionPatterns locate the canonical syllabus sections by their
// Portuguese headings. Headings must carry a colon so that document
// titles ("PROGRAMA DE COMPONENTE CURRICULAR") do not shadow them.
var sectionPatterns = map[string][]*regexp.Regexp{
	"objectives": {
		regexp.MustCompile(`(?is)(?:objetivos?|metas?|finalidade)\s*:\s*(.+?)` + nextHeading),
	},
	"content": {
		regexp.MustCompile(`(?is)(?:conte[úu]do program[áa]tico|ementa|programa)\s*:\s*(.+?)` + nextHeading),
	},
	"methodology": {
		regexp.MustCompile(`(?is)(?:metodologia|m[ée]todo|estrat[ée]gias?)\s*:\s*(.+?)` + nextHeading),
	},
	"evaluation": {
		regexp.MustCompile(`(?is)(?:formas? de avalia[çc][ãa]o|sistema de avalia[çc][ãa]o|avalia[çc][ãa]o|crit[ée]rios?)\s*:\s*(.+?)` + nextHeading),
	},
	"bibliography": {
		regexp.MustCompile(`(?is)(?:bibliografia|refer[êe]ncias?)\s*:\s*(.+?)$`),
	},
}

// findSectionRaw returns the captured block with line structure intact.
func findSectionRaw(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if m != nil {
			return m[1]
		}
	}
	return ""
}

func findSection(text string, patterns []*regexp.Regexp) string {
	return textutil.Sanitize(findSectionRaw(text, patterns))
}

// ParseSyllabus picks the canonical sections out of extracted syllabus
// text. Sections the document does not carry stay empty; the caller
// decides whether a mostly-empty syllabus is worth keeping.
func ParseSyllabus(text string) records.Syllabus {
	return records.Syllabus{
		Objectives:   findSection(text, sectionPatterns["objectives"]),
		Content:      findSection(text, sectionPatterns["content"]),
		Methodology:  findSection(text, sectionPatterns["methodology"]),
		Evaluation:   findSection(text, sectionPatterns["evaluation"]),
		Bibliography: parseBibliography(findSectionRaw(text, sectionPatterns["bibliography"])),
	}
}

// parseBibliography splits a bibliography block into individual
// references. References arrive either one per line or as a numbered
// run-on list.
func parseBibliography(block string) []string {
	if block == "" {
		return nil
	}

	parts := regexp.MustCompile(`(?:\n|;|\d+\.\s)`).Split(block, -1)
	var refs []string
	for _, part := range parts {
		ref := textutil.Sanitize(part)
		// A real reference has at least an author and a title.
		if len(ref) < 10 || !strings.ContainsAny(ref, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			continue
		}
		refs = append(refs, ref)
		if len(refs) == maxBibliographyEntries {
			break
		}
	}
	return refs
}
