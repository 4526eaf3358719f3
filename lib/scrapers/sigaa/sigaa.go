// Package sigaa implements extraction strategies for the SIGAA public
// portal at UFBA. The portal is a server-rendered JSF application: every
// search is a form post carrying the page's hidden view state, and the
// result is a plain HTML table.
package sigaa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/htmlutil"
	"radar-scraping/lib/scraper"
	"radar-scraping/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

const (
	BaseUrl = "https://sigaa.ufba.br"

	coursesFormUrl    = "/sigaa/public/curso/busca_curso_form.jsf"
	componentsFormUrl = "/sigaa/public/componentes/busca_componentes.jsf"
	structuresFormUrl = "/sigaa/public/curriculo/busca_curriculo.jsf"
)

// ErrPageStructure reports that a page loaded fine but did not have the
// shape the strategy expects. The portal's markup changed, or the
// filter produced a page variant the strategy has never seen; retrying
// will not help.
var ErrPageStructure = errors.New("page structure mismatch")

// ErrNotFound reports an empty result set for the given filter.
var ErrNotFound = errors.New("no results for filter")

// ErrPortalUnavailable reports the portal's maintenance page. This is
// the portal telling us to come back later.
var ErrPortalUnavailable = errors.New("portal unavailable")

// optionMatchThreshold is the minimum Jaro-Winkler similarity for a
// filter value to be bound to a select option.
const optionMatchThreshold = 0.9

// unavailableMarkers are phrases the portal shows on its maintenance
// and overload pages.
var unavailableMarkers = []string{
	"sistema está indisponível",
	"sistema indisponível",
	"em manutenção",
	"tente novamente mais tarde",
}

func pageUnavailable(doc *goquery.Document) bool {
	body := strings.ToLower(doc.Find("body").Text())
	for _, marker := range unavailableMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// checkLoaded validates the current document after navigation.
func checkLoaded(drv browser.Driver) (*goquery.Document, error) {
	doc := drv.Document()
	if doc == nil {
		return nil, browser.ErrNoDocument
	}
	if pageUnavailable(doc) {
		return nil, fmt.Errorf("%w: %s", ErrPortalUnavailable, drv.Location())
	}
	return doc, nil
}

// collectForm gathers the form's action and every hidden input. JSF
// rejects posts that do not echo javax.faces.ViewState back, so the
// hidden fields are not optional.
func collectForm(doc *goquery.Document, selector string) (browser.Form, error) {
	formSel := doc.Find(selector).First()
	if formSel.Length() == 0 {
		return browser.Form{}, fmt.Errorf("%w: form %q not found", ErrPageStructure, selector)
	}

	action, ok := formSel.Attr("action")
	if !ok || action == "" {
		return browser.Form{}, fmt.Errorf("%w: form %q has no action", ErrPageStructure, selector)
	}

	fields := map[string]string{}
	formSel.Find("input[type=hidden]").Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		if name == "" {
			return
		}
		value, _ := input.Attr("value")
		fields[name] = value
	})
	if name, ok := formSel.Attr("name"); ok && name != "" {
		fields[name] = name
	}

	return browser.Form{Action: action, Fields: fields}, nil
}

// bindSelect resolves a human filter value against a select's option
// labels using fuzzy matching and writes the matched option's value
// into the form. Exact value matches short-circuit.
func bindSelect(doc *goquery.Document, form browser.Form, selectName, want string) error {
	sel := doc.Find(fmt.Sprintf("select[name=%q]", selectName))
	if sel.Length() == 0 {
		return fmt.Errorf("%w: select %q not found", ErrPageStructure, selectName)
	}

	var bestValue string
	var bestSimilarity float64
	normalizedWant := textutil.NormalizeName(want)

	sel.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		value, _ := opt.Attr("value")
		label := textutil.NormalizeName(opt.Text())

		if value == want || label == normalizedWant {
			bestValue = value
			bestSimilarity = 1
			return false
		}
		similarity := matchr.JaroWinkler(label, normalizedWant, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestValue = value
		}
		return true
	})

	if bestSimilarity < optionMatchThreshold {
		return fmt.Errorf("%w: no option of %q matches %q (best %.2f)",
			ErrNotFound, selectName, want, bestSimilarity)
	}
	form.Fields[selectName] = bestValue
	return nil
}

// resultRows locates the portal's listing table and returns its body
// rows. The portal renders an empty listagem table, not an error page,
// when nothing matched.
func resultRows(doc *goquery.Document) (*goquery.Selection, error) {
	table := doc.Find("table.listagem").First()
	if table.Length() == 0 {
		if pageUnavailable(doc) {
			return nil, ErrPortalUnavailable
		}
		return nil, fmt.Errorf("%w: result table missing", ErrPageStructure)
	}
	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// submitSearch runs the shared navigate, bind, submit sequence and
// returns the result rows.
func submitSearch(
	ctx context.Context, drv browser.Driver, formUrl string,
	filter scraper.Filter, selects map[string]string, extraFields map[string]string,
) (*goquery.Selection, error) {
	err := drv.Navigate(ctx, formUrl)
	if err != nil {
		return nil, fmt.Errorf("open search form: %w", err)
	}
	doc, err := checkLoaded(drv)
	if err != nil {
		return nil, err
	}

	form, err := collectForm(doc, "form")
	if err != nil {
		return nil, err
	}
	for key, selectName := range selects {
		want, ok := filter[key]
		if !ok || want == "" {
			continue
		}
		err = bindSelect(doc, form, selectName, want)
		if err != nil {
			return nil, fmt.Errorf("bind filter %q: %w", key, err)
		}
	}
	for name, value := range extraFields {
		form.Fields[name] = value
	}

	err = drv.Submit(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	doc, err = checkLoaded(drv)
	if err != nil {
		return nil, err
	}
	return resultRows(doc)
}

// cellTexts extracts sanitized text from every cell of a row.
func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, htmlutil.CellText(cell))
	})
	return cells
}
