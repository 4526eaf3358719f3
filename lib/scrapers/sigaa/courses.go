package sigaa

import (
	"context"
	"net/url"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/htmlutil"
	"radar-scraping/lib/scraper"
	"radar-scraping/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("radar.lib.scrapers.sigaa")

// CoursesStrategy extracts the degree program listing. Understood
// filter keys: "unit", "modality", "city".
type CoursesStrategy struct{}

var _ scraper.Strategy = CoursesStrategy{}

func (CoursesStrategy) Target() scraper.TargetType {
	return scraper.TargetCourses
}

func (CoursesStrategy) Extract(
	ctx context.Context, drv browser.Driver, filter scraper.Filter,
) (scraper.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "CoursesStrategy.Extract")
	defer span.End()

	rows, err := submitSearch(ctx, drv, coursesFormUrl, filter, map[string]string{
		"unit":     "busca:unidade",
		"modality": "busca:modalidade",
		"city":     "busca:municipio",
	}, map[string]string{
		"busca:btnBuscar": "Buscar",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return scraper.ExtractionResult{}, err
	}

	base, _ := url.Parse(drv.Location())
	result := scraper.ExtractionResult{SourceUrl: drv.Location()}

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 5 {
			result.Partial = true
			return
		}
		record := map[string]any{
			"name":     cells[0],
			"degree":   cells[1],
			"shift":    cells[2],
			"modality": cells[3],
			"city":     cells[4],
		}
		if len(cells) > 5 {
			record["unit"] = cells[5]
		}
		record["code"] = courseCode(row, base)
		result.RawRecords = append(result.RawRecords, record)
	})

	if len(result.RawRecords) == 0 {
		span.SetStatus(codes.Error, ErrPageStructure.Error())
		return scraper.ExtractionResult{}, ErrPageStructure
	}
	return result, nil
}

// courseCode pulls the course identifier out of the row's detail link.
// The portal has no visible code column; the id query parameter of the
// "visualizar" anchor is the stable identifier.
func courseCode(row *goquery.Selection, base *url.URL) string {
	for _, anchor := range htmlutil.GetAnchors(row, base) {
		href, err := url.Parse(anchor.Href)
		if err != nil {
			continue
		}
		if id := href.Query().Get("id"); id != "" {
			return id
		}
	}
	return ""
}
