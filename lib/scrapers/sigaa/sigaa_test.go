package sigaa

import (
	"context"
	"testing"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/browser/browsertest"
	"radar-scraping/lib/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const coursesFormPage = `<html><body>
<form name="busca" action="/sigaa/public/curso/busca_curso_form.jsf" method="post">
<input type="hidden" name="javax.faces.ViewState" value="j_id42" />
<select name="busca:unidade">
<option value="0">-- SELECIONE --</option>
<option value="443">ESCOLA POLITÉCNICA</option>
<option value="12">INSTITUTO DE MATEMÁTICA</option>
</select>
<select name="busca:modalidade">
<option value="0">-- SELECIONE --</option>
<option value="1">Presencial</option>
</select>
</form>
</body></html>`

const coursesResultPage = `<html><body>
<table class="listagem">
<thead><tr><th>Nome</th><th>Grau</th><th>Turno</th><th>Modalidade</th><th>Sede</th></tr></thead>
<tbody>
<tr><td><a href="/sigaa/public/curso/portal.jsf?id=85122">ENGENHARIA ELÉTRICA</a></td>
<td>BACHARELADO</td><td>MT</td><td>Presencial</td><td>Salvador</td></tr>
<tr><td><a href="/sigaa/public/curso/portal.jsf?id=85130">ENGENHARIA MECÂNICA</a></td>
<td>BACHARELADO</td><td>MT</td><td>Presencial</td><td>Salvador</td></tr>
</tbody>
</table>
</body></html>`

const componentsFormPage = `<html><body>
<form name="form" action="/sigaa/public/componentes/busca_componentes.jsf" method="post">
<input type="hidden" name="javax.faces.ViewState" value="j_id43" />
<select name="form:unidades">
<option value="0">-- SELECIONE --</option>
<option value="12">INSTITUTO DE MATEMÁTICA</option>
</select>
<select name="form:tipos">
<option value="0">-- SELECIONE --</option>
<option value="2">DISCIPLINA</option>
</select>
</form>
</body></html>`

const componentsResultPage = `<html><body>
<table class="listagem">
<tbody>
<tr><td>MATA02</td><td>CÁLCULO A</td><td>DISCIPLINA</td><td>INSTITUTO DE MATEMÁTICA</td>
<td>102</td><td>6</td>
<td><a href="/sigaa/docs/ementas/mata02.pdf">Programa Atual do Componente</a></td></tr>
</tbody>
</table>
</body></html>`

const unavailablePage = `<html><body>
<p>O sistema está indisponível no momento. Tente novamente mais tarde.</p>
</body></html>`

func courseDriver(t *testing.T) *browsertest.FakeDriver {
	t.Helper()
	return &browsertest.FakeDriver{
		Pages: map[string]string{
			coursesFormUrl: coursesFormPage,
		},
		Submits: map[string]string{
			coursesFormUrl: coursesResultPage,
		},
	}
}

func TestCoursesExtract(t *testing.T) {
	drv := courseDriver(t)
	result, err := CoursesStrategy{}.Extract(context.Background(), drv, scraper.Filter{
		"unit": "Escola Politecnica",
	})
	require.NoError(t, err)
	require.False(t, result.Partial)
	require.Len(t, result.RawRecords, 2)

	want := map[string]any{
		"code":     "85122",
		"name":     "ENGENHARIA ELÉTRICA",
		"degree":   "BACHARELADO",
		"shift":    "MT",
		"modality": "Presencial",
		"city":     "Salvador",
	}
	if diff := cmp.Diff(want, result.RawRecords[0]); diff != "" {
		t.Fatalf("first record mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "85130", result.RawRecords[1]["code"])
}

func TestCoursesExtractUnknownUnit(t *testing.T) {
	drv := courseDriver(t)
	_, err := CoursesStrategy{}.Extract(context.Background(), drv, scraper.Filter{
		"unit": "Faculdade Inexistente de Outra Cidade",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCoursesExtractEmptyResults(t *testing.T) {
	drv := courseDriver(t)
	drv.Submits[coursesFormUrl] = `<html><body><table class="listagem"><tbody></tbody></table></body></html>`

	_, err := CoursesStrategy{}.Extract(context.Background(), drv, scraper.Filter{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCoursesExtractPortalUnavailable(t *testing.T) {
	drv := courseDriver(t)
	drv.Pages[coursesFormUrl] = unavailablePage

	_, err := CoursesStrategy{}.Extract(context.Background(), drv, scraper.Filter{})
	require.ErrorIs(t, err, ErrPortalUnavailable)
}

func TestCoursesExtractStructureMismatch(t *testing.T) {
	drv := courseDriver(t)
	drv.Submits[coursesFormUrl] = `<html><body><div>redesigned page</div></body></html>`

	_, err := CoursesStrategy{}.Extract(context.Background(), drv, scraper.Filter{})
	require.ErrorIs(t, err, ErrPageStructure)
}

func componentDriver(t *testing.T) *browsertest.FakeDriver {
	t.Helper()
	return &browsertest.FakeDriver{
		Pages: map[string]string{
			componentsFormUrl: componentsFormPage,
		},
		Submits: map[string]string{
			componentsFormUrl: componentsResultPage,
		},
		Files: map[string][]byte{
			"/sigaa/docs/ementas/mata02.pdf": []byte("not really a pdf"),
		},
	}
}

func TestComponentsExtract(t *testing.T) {
	strategy := NewComponentsStrategy(ComponentsOptions{})
	drv := componentDriver(t)

	result, err := strategy.Extract(context.Background(), drv, scraper.Filter{
		"unit": "Instituto de Matematica",
		"kind": "Disciplina",
	})
	require.NoError(t, err)
	require.Len(t, result.RawRecords, 1)

	rec := result.RawRecords[0]
	require.Equal(t, "MATA02", rec["code"])
	require.Equal(t, "CÁLCULO A", rec["name"])
	require.Equal(t, "102", rec["workload"])
	require.Equal(t, "6", rec["credits"])
	require.NotContains(t, rec, "syllabus")
}

// A syllabus pdf that cannot be parsed degrades the result to partial
// instead of failing the extraction.
func TestComponentsExtractBadSyllabusIsPartial(t *testing.T) {
	strategy := NewComponentsStrategy(ComponentsOptions{EnrichSyllabus: true})
	drv := componentDriver(t)

	result, err := strategy.Extract(context.Background(), drv, scraper.Filter{})
	require.NoError(t, err)
	require.True(t, result.Partial)
	require.Len(t, result.RawRecords, 1)
	require.NotContains(t, result.RawRecords[0], "syllabus")
}

func TestStructuresExtract(t *testing.T) {
	drv := &browsertest.FakeDriver{
		Pages: map[string]string{
			structuresFormUrl: `<html><body>
<form name="busca" action="/sigaa/public/curriculo/busca_curriculo.jsf" method="post">
<input type="hidden" name="javax.faces.ViewState" value="j_id44" />
<select name="busca:curso">
<option value="0">-- SELECIONE --</option>
<option value="85122">ENGENHARIA ELÉTRICA</option>
</select>
</form>
</body></html>`,
		},
		Submits: map[string]string{
			structuresFormUrl: `<html><body>
<table class="listagem"><tbody>
<tr><td>2017.1</td><td>2017</td><td>Ativa</td><td>MT</td></tr>
</tbody></table>
</body></html>`,
		},
	}

	result, err := StructuresStrategy{}.Extract(context.Background(), drv, scraper.Filter{
		"course": "85122",
	})
	require.NoError(t, err)
	require.Len(t, result.RawRecords, 1)
	require.Equal(t, "2017.1", result.RawRecords[0]["code"])
	require.Equal(t, "85122", result.RawRecords[0]["course_code"])
	require.Equal(t, "Ativa", result.RawRecords[0]["status"])
}

func TestParseSyllabus(t *testing.T) {
	text := `PROGRAMA DE COMPONENTE CURRICULAR
Objetivos: Desenvolver o raciocínio matemático aplicado
a funções de uma variável real.
Conteúdo Programático: Limites, derivadas e integrais
de funções de uma variável.
Metodologia: Aulas expositivas e listas de exercícios.
Avaliação: Três provas escritas.
Bibliografia:
STEWART, J. Cálculo, volume 1. Cengage Learning, 2013.
GUIDORIZZI, H. Um curso de cálculo. LTC, 2001.
`
	syllabus := ParseSyllabus(text)
	require.Contains(t, syllabus.Objectives, "raciocínio matemático")
	require.Contains(t, syllabus.Content, "Limites")
	require.Contains(t, syllabus.Methodology, "Aulas expositivas")
	require.Contains(t, syllabus.Evaluation, "provas escritas")
	require.Len(t, syllabus.Bibliography, 2)
	require.Contains(t, syllabus.Bibliography[0], "STEWART")
}

func TestParseBibliographyCapsEntries(t *testing.T) {
	var block string
	for i := 0; i < 40; i++ {
		block += "AUTOR, A. Livro de exemplo numero grande. Editora, 2020.\n"
	}
	refs := parseBibliography(block)
	require.Len(t, refs, maxBibliographyEntries)
}

func TestCollectFormEchoesViewState(t *testing.T) {
	drv := courseDriver(t)
	require.NoError(t, drv.Navigate(context.Background(), coursesFormUrl))

	form, err := collectForm(drv.Document(), "form")
	require.NoError(t, err)
	require.Equal(t, "/sigaa/public/curso/busca_curso_form.jsf", form.Action)
	require.Equal(t, "j_id42", form.Fields["javax.faces.ViewState"])
	require.Equal(t, "busca", form.Fields["busca"])
}

func TestBindSelectPrefersExactValue(t *testing.T) {
	drv := courseDriver(t)
	require.NoError(t, drv.Navigate(context.Background(), coursesFormUrl))

	form := browser.Form{Fields: map[string]string{}}
	err := bindSelect(drv.Document(), form, "busca:unidade", "443")
	require.NoError(t, err)
	require.Equal(t, "443", form.Fields["busca:unidade"])
}
