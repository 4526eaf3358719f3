// Package scraper defines the seam between the orchestration layer and
// site-specific extraction code.
//
// an extraction strategy generally has this structure:
// 1. navigate to the target's search form.
// 2. fill and submit the form (filters applied here).
// 3. make assertions on the result page's shape.
// 4. transform rows/detail pages into semi-structured records.
//
// the strategy never decides whether to retry, how fast to go, or which
// session to use. that is the scheduler's job; the strategy only reports
// what happened through its error.
package scraper

import (
	"context"

	"radar-scraping/lib/browser"
)

// TargetType names one category of academic record the portal serves.
type TargetType string

const (
	TargetCourses    TargetType = "courses"
	TargetComponents TargetType = "components"
	TargetStructures TargetType = "structures"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetCourses, TargetComponents, TargetStructures:
		return true
	}
	return false
}

// Filter carries opaque search parameters, e.g. "unit" or "modality".
// Strategies interpret the keys they understand and ignore the rest.
type Filter map[string]string

// ExtractionResult is the raw output of one strategy run, before
// validation. RawRecords preserves page order.
type ExtractionResult struct {
	RawRecords []map[string]any
	// Partial is set when a sub-step failed (a single row's detail page,
	// a syllabus link) without invalidating the rest of the page.
	Partial   bool
	SourceUrl string
}

type Strategy interface {
	Target() TargetType
	Extract(ctx context.Context, drv browser.Driver, filter Filter) (ExtractionResult, error)
}
