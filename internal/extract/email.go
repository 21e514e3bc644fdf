package extract

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

var (
	htmlPolicy = bluemonday.UGCPolicy()

	reQuotePrefix  = regexp.MustCompile(`^(\s*>)+\s?`)
	reMDRule       = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
	reMDEmphasis   = regexp.MustCompile(`\*\*|__`)
	reMDEscape     = regexp.MustCompile(`\\([\\\-*_#.+!|\[\]()])`)
	reMDHeading    = regexp.MustCompile(`^#{1,6}\s+`)
	reMDListMarker = regexp.MustCompile(`^[-*+]\s+`)
)

// EmailText builds a document from a plain-text body. Quote markers of
// replied text are removed, the quoted lines themselves are kept.
func EmailText(name, body string) internal.NormalizedDocument {
	if name == "" {
		name = "body"
	}
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = reQuotePrefix.ReplaceAllString(l, "")
	}
	text := strings.Join(lines, "\n")
	return internal.NormalizedDocument{
		Source:  internal.SourceEmailText,
		Name:    name,
		Rows:    RowsFromText(text),
		RawText: strings.TrimSpace(util.NormalizeText(text)),
	}
}

// EmailHTML sanitizes an HTML body, lifts its innermost tables and renders
// the rest to text through markdown.
func EmailHTML(name, html string) (internal.NormalizedDocument, error) {
	if name == "" {
		name = "body"
	}
	clean := htmlPolicy.Sanitize(html)

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return internal.NormalizedDocument{}, fmt.Errorf("parse html: %w", err)
	}
	tables := htmlTables(dom)

	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		md = dom.Text()
	}
	text := markdownToText(md)

	return internal.NormalizedDocument{
		Source:  internal.SourceEmailHTML,
		Name:    name,
		Tables:  tables,
		Rows:    RowsFromText(text),
		RawText: strings.TrimSpace(util.NormalizeText(text)),
	}, nil
}

func htmlTables(dom *goquery.Document) []internal.Table {
	var out []internal.Table
	dom.Find("table").Each(func(_ int, table *goquery.Selection) {
		// layout tables wrap the real ones
		if table.Find("table").Length() > 0 {
			return
		}
		var t internal.Table
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, util.CollapseSpaces(util.NormalizeText(cell.Text())))
			})
			if strings.TrimSpace(strings.Join(row, "")) != "" {
				t = append(t, row)
			}
		})
		if len(t) >= 2 {
			out = append(out, t)
		}
	})
	return out
}

func markdownToText(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if reMDRule.MatchString(trimmed) && strings.Contains(trimmed, "-") {
			continue
		}
		l = reMDHeading.ReplaceAllString(trimmed, "")
		l = reMDListMarker.ReplaceAllString(l, "")
		l = reMDEmphasis.ReplaceAllString(l, "")
		l = reMDEscape.ReplaceAllString(l, "$1")
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
