package sigaa

import (
	"context"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// StructuresStrategy extracts curriculum structures for a course.
// Understood filter keys: "course" (required by the portal's form),
// "unit".
type StructuresStrategy struct{}

var _ scraper.Strategy = StructuresStrategy{}

func (StructuresStrategy) Target() scraper.TargetType {
	return scraper.TargetStructures
}

func (StructuresStrategy) Extract(
	ctx context.Context, drv browser.Driver, filter scraper.Filter,
) (scraper.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "StructuresStrategy.Extract")
	defer span.End()

	rows, err := submitSearch(ctx, drv, structuresFormUrl, filter, map[string]string{
		"course": "busca:curso",
		"unit":   "busca:unidade",
	}, map[string]string{
		"busca:btnBuscar": "Buscar",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return scraper.ExtractionResult{}, err
	}

	courseCode := filter["course"]
	result := scraper.ExtractionResult{SourceUrl: drv.Location()}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			result.Partial = true
			return
		}
		record := map[string]any{
			"code":        cells[0],
			"course_code": courseCode,
			"year":        cells[1],
			"status":      cells[2],
		}
		if len(cells) > 3 {
			record["shift"] = cells[3]
		}
		result.RawRecords = append(result.RawRecords, record)
	})

	if len(result.RawRecords) == 0 {
		span.SetStatus(codes.Error, ErrPageStructure.Error())
		return scraper.ExtractionResult{}, ErrPageStructure
	}
	return result, nil
}
