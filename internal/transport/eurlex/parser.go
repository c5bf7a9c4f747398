package eurlex

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

var (
	articleDivID  = regexp.MustCompile(`art_\d+`)
	recitalDivID  = regexp.MustCompile(`rct_\d+`)
	legacyArticle = regexp.MustCompile(`^Article (\d+)`)
	legacyAnnex   = regexp.MustCompile(`^ANNEX ([IVX]+)`)
)

// Parse extracts the structure of an EUR-Lex HTML page. Pages with the
// current OJ markup (art_N divisions) and pages without a TexteOnly block go
// through the modern parser; everything else through the legacy one.
func Parse(celexID string, r io.Reader) (law.StructuredDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return law.StructuredDocument{}, fmt.Errorf("parse %s: %w: %w", celexID, domain.ErrFetchFailed, err)
	}
	doc.Find("script, style, link, meta, hr").Remove()

	articles := articleDivs(doc.Selection)
	texteOnly := doc.Find(`div[id="TexteOnly"]`).First()

	if articles.Length() > 0 || texteOnly.Length() == 0 {
		return parseModern(celexID, doc.Selection, articles), nil
	}
	return parseLegacy(celexID, doc.Selection, texteOnly), nil
}

func articleDivs(root *goquery.Selection) *goquery.Selection {
	return root.Find("div[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return articleDivID.MatchString(id)
	})
}

func parseModern(celexID string, root, articles *goquery.Selection) law.StructuredDocument {
	d := law.StructuredDocument{
		CelexID:  celexID,
		Header:   header(root),
		Title:    mainTitle(root),
		Preamble: preamble(root),
	}

	articles.Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		d.Articles = append(d.Articles, law.Passage{
			ID:       strings.ReplaceAll(id, "art_", ""),
			Kind:     law.KindArticle,
			Title:    text(s.Find(".oj-ti-art").First(), ""),
			Subtitle: text(s.Find(".oj-sti-art").First(), ""),
			Text:     text(s, "\n"),
		})
	})

	if anx := root.Find(`div[id="anx_1"]`).First(); anx.Length() > 0 {
		d.Annexes = append(d.Annexes, law.Passage{
			ID:    "anx_1",
			Kind:  law.KindAnnex,
			Title: text(anx.Find("p.oj-doc-ti").First(), ""),
			Text:  text(anx, "\n"),
		})
	}
	if app := root.Find(`div[id="anx_1.app_1"]`).First(); app.Length() > 0 {
		d.Appendices = append(d.Appendices, law.Passage{
			ID:    "anx_1.app_1",
			Kind:  law.KindAppendix,
			Title: text(app.Find("p.oj-doc-ti").First(), ""),
			Text:  text(app, "\n"),
		})
	}
	return d
}

func header(root *goquery.Selection) string {
	table := root.Find(`table[width="100%"]`).First()
	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			if t := text(td, ""); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " | "))
		}
	})
	return strings.Join(lines, "\n")
}

func mainTitle(root *goquery.Selection) string {
	var lines []string
	root.Find(".eli-main-title").First().Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := text(p, ""); t != "" {
			lines = append(lines, t)
		}
	})
	return strings.Join(lines, "\n")
}

func preamble(root *goquery.Selection) string {
	pbl := root.Find(`div[id="pbl_1"]`).First()
	if pbl.Length() == 0 {
		return ""
	}
	parts := []string{"PREAMBLE"}
	pbl.ChildrenFiltered("p.oj-normal").Each(func(_ int, p *goquery.Selection) {
		if t := text(p, ""); t != "" {
			parts = append(parts, t)
		}
	})

	recitals := pbl.Find("div[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return recitalDivID.MatchString(id)
	})
	if recitals.Length() > 0 {
		parts = append(parts, "\nWHEREAS:")
		recitals.Each(func(_ int, r *goquery.Selection) {
			r.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td")
				if cells.Length() < 2 {
					return
				}
				num := strings.Trim(text(cells.Eq(0), ""), "()")
				content := text(cells.Eq(1), "")
				if num != "" && content != "" {
					parts = append(parts, "("+num+") "+content)
				}
			})
		})
	}
	return strings.Join(parts, "\n\n")
}

func parseLegacy(celexID string, root, texteOnly *goquery.Selection) law.StructuredDocument {
	title := text(root.Find("strong").First(), "")
	if title == "" {
		title = text(root.Find("h1").First(), "")
	}
	d := law.StructuredDocument{CelexID: celexID, Title: title}

	var article, annex *law.Passage
	flush := func() {
		if article != nil {
			d.Articles = append(d.Articles, *article)
			article = nil
		}
		if annex != nil {
			d.Annexes = append(d.Annexes, *annex)
			annex = nil
		}
	}

	texteOnly.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := text(p, "")
		switch {
		case t == "":
		case strings.HasPrefix(t, "Article "):
			flush()
			if m := legacyArticle.FindStringSubmatch(t); m != nil {
				article = &law.Passage{ID: m[1], Kind: law.KindArticle, Title: t, Text: t}
			}
		case strings.HasPrefix(t, "ANNEX "):
			flush()
			if m := legacyAnnex.FindStringSubmatch(t); m != nil {
				annex = &law.Passage{ID: "anx_" + m[1], Kind: law.KindAnnex, Title: t, Text: t}
			}
		case article != nil:
			article.Text += "\n\n" + t
		case annex != nil:
			annex.Text += "\n\n" + t
		}
	})
	flush()
	return d
}

// text collects the text nodes under s, trims each, drops empty ones and
// joins the rest with sep. The result is NFC so composed and decomposed
// accents in the source compare and embed alike.
func text(s *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(c)
		})
	}
	walk(s)
	return norm.NFC.String(strings.Join(parts, sep))
}
