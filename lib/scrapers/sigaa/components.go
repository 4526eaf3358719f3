package sigaa

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/htmlutil"
	"radar-scraping/lib/pdftext"
	"radar-scraping/lib/records"
	"radar-scraping/lib/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/codes"
)

const (
	syllabusCacheSize = 512
	syllabusCacheTTL  = time.Hour * 24
)

// ComponentsStrategy extracts curricular components. Understood filter
// keys: "unit", "kind", "name". When EnrichSyllabus is on, each row's
// syllabus pdf is downloaded and run through text extraction; pdf
// failures mark the result partial instead of failing the whole page.
type ComponentsStrategy struct {
	enrich bool
	cache  *expirable.LRU[string, pdftext.Extraction]
}

type ComponentsOptions struct {
	// EnrichSyllabus turns on pdf download and section extraction.
	EnrichSyllabus bool
}

func NewComponentsStrategy(opts ComponentsOptions) *ComponentsStrategy {
	return &ComponentsStrategy{
		enrich: opts.EnrichSyllabus,
		cache:  expirable.NewLRU[string, pdftext.Extraction](syllabusCacheSize, nil, syllabusCacheTTL),
	}
}

var _ scraper.Strategy = (*ComponentsStrategy)(nil)

func (s *ComponentsStrategy) Target() scraper.TargetType {
	return scraper.TargetComponents
}

func (s *ComponentsStrategy) Extract(
	ctx context.Context, drv browser.Driver, filter scraper.Filter,
) (scraper.ExtractionResult, error) {
	ctx, span := tracer.Start(ctx, "ComponentsStrategy.Extract")
	defer span.End()

	extraFields := map[string]string{
		"form:btnBuscarComponentes": "Buscar Componentes",
	}
	if name, ok := filter["name"]; ok && name != "" {
		extraFields["form:checkNome"] = "on"
		extraFields["form:txtNome"] = name
	}

	rows, err := submitSearch(ctx, drv, componentsFormUrl, filter, map[string]string{
		"unit": "form:unidades",
		"kind": "form:tipos",
	}, extraFields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return scraper.ExtractionResult{}, err
	}

	base, _ := url.Parse(drv.Location())
	result := scraper.ExtractionResult{SourceUrl: drv.Location()}

	type pending struct {
		record map[string]any
		pdfUrl string
	}
	var pendings []pending

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 4 {
			result.Partial = true
			return
		}
		record := map[string]any{
			"code": cells[0],
			"name": cells[1],
			"kind": cells[2],
			"unit": cells[3],
		}
		if len(cells) > 4 {
			record["workload"] = cells[4]
		}
		if len(cells) > 5 {
			record["credits"] = cells[5]
		}
		pendings = append(pendings, pending{
			record: record,
			pdfUrl: syllabusLink(row, base),
		})
	})

	for _, p := range pendings {
		if s.enrich && p.pdfUrl != "" {
			syllabus, ok := s.fetchSyllabus(ctx, drv, p.pdfUrl)
			if ok {
				p.record["syllabus"] = syllabus
			} else {
				result.Partial = true
			}
		}
		result.RawRecords = append(result.RawRecords, p.record)
	}

	if len(result.RawRecords) == 0 {
		span.SetStatus(codes.Error, ErrPageStructure.Error())
		return scraper.ExtractionResult{}, ErrPageStructure
	}
	return result, nil
}

// fetchSyllabus downloads and extracts one syllabus pdf, serving
// repeats from the cache. Components shared between curricula reuse the
// same document, so the cache saves real portal traffic.
func (s *ComponentsStrategy) fetchSyllabus(
	ctx context.Context, drv browser.Driver, pdfUrl string,
) (records.Syllabus, bool) {
	extraction, ok := s.cache.Get(pdfUrl)
	if !ok {
		data, err := drv.Download(ctx, pdfUrl)
		if err != nil {
			slog.WarnContext(ctx, "syllabus download failed", "url", pdfUrl, "err", err)
			return records.Syllabus{}, false
		}
		extraction, err = pdftext.ExtractBest(data)
		if err != nil {
			slog.WarnContext(ctx, "syllabus extraction failed", "url", pdfUrl, "err", err)
			return records.Syllabus{}, false
		}
		s.cache.Add(pdfUrl, extraction)
	}

	syllabus := ParseSyllabus(extraction.Text)
	syllabus.Confidence = extraction.Confidence
	return syllabus, true
}

// syllabusLink finds the row's pdf anchor, if any.
func syllabusLink(row *goquery.Selection, base *url.URL) string {
	for _, anchor := range htmlutil.GetAnchors(row, base) {
		href := strings.ToLower(anchor.Href)
		name := strings.ToLower(anchor.Name)
		if strings.Contains(href, ".pdf") ||
			strings.Contains(name, "ementa") ||
			strings.Contains(name, "programa") {
			return anchor.Href
		}
	}
	return ""
}
