package pipeline

import (
	"regexp"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// linePattern turns one free-text line into typed fields. build may refuse a
// match, in which case the next pattern is tried.
type linePattern struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (fields, bool)
}

const (
	qtyExpr  = `(\d{1,3}(?:[ .,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)`
	codeExpr = `([A-Za-z0-9][A-Za-z0-9\-./]{2,})`
)

var (
	unitExpr = `(` + strings.Join(quoteAll(util.UnitWords()), "|") + `)\.?`

	bulletRe = regexp.MustCompile(`^\s*(?:[-*•·▪►]+|\(\w\)|[a-z]\))\s*`)

	// linePatterns are tried in order; the first accepted match wins.
	linePatterns = []linePattern{
		{
			name: "line_qty_unit_code_desc",
			re:   regexp.MustCompile(`(?i)^(\d{1,4})[.)]?\s+` + qtyExpr + `\s*` + unitExpr + `\s+` + codeExpr + `\s+(.{3,})$`),
			build: func(m []string) (fields, bool) {
				if !util.HasDigit(m[4]) {
					return nil, false
				}
				return fields{
					internal.ColLineNumber:    m[1],
					internal.ColQuantity:      m[2],
					internal.ColUnitOfMeasure: m[3],
					internal.ColItemCode:      m[4],
					internal.ColDescription:   m[5],
				}, true
			},
		},
		{
			name: "line_qty_unit_desc",
			re:   regexp.MustCompile(`(?i)^(\d{1,4})[.)]?\s+` + qtyExpr + `\s*` + unitExpr + `\s+(.{3,})$`),
			build: func(m []string) (fields, bool) {
				return fields{
					internal.ColLineNumber:    m[1],
					internal.ColQuantity:      m[2],
					internal.ColUnitOfMeasure: m[3],
					internal.ColDescription:   m[4],
				}, true
			},
		},
		{
			name: "qty_x_desc",
			re:   regexp.MustCompile(`(?i)^` + qtyExpr + `\s*(?:` + unitExpr + `\s*)?[x×]\s+(.{3,})$`),
			build: func(m []string) (fields, bool) {
				return fields{
					internal.ColQuantity:      m[1],
					internal.ColUnitOfMeasure: m[2],
					internal.ColDescription:   m[3],
				}, true
			},
		},
		{
			name: "qty_unit_desc",
			re:   regexp.MustCompile(`(?i)^` + qtyExpr + `\s*` + unitExpr + `\s+(?:(?:of|de|d')\s*)?(.{3,})$`),
			build: func(m []string) (fields, bool) {
				return fields{
					internal.ColQuantity:      m[1],
					internal.ColUnitOfMeasure: m[2],
					internal.ColDescription:   m[3],
				}, true
			},
		},
		{
			name: "code_desc_qty",
			re:   regexp.MustCompile(`(?i)^` + codeExpr + `\s+(.{3,}?)\s+` + qtyExpr + `\s*(?:` + unitExpr + `)?$`),
			build: func(m []string) (fields, bool) {
				if !util.HasDigit(m[1]) || !util.HasLetter(m[2]) {
					return nil, false
				}
				return fields{
					internal.ColItemCode:      m[1],
					internal.ColDescription:   m[2],
					internal.ColQuantity:      m[3],
					internal.ColUnitOfMeasure: m[4],
				}, true
			},
		},
		{
			name: "desc_x_qty",
			re:   regexp.MustCompile(`(?i)^(.{3,}?)\s*[x×]\s*` + qtyExpr + `\s*(?:` + unitExpr + `)?$`),
			build: func(m []string) (fields, bool) {
				if !util.HasLetter(m[1]) {
					return nil, false
				}
				return fields{
					internal.ColDescription:   m[1],
					internal.ColQuantity:      m[2],
					internal.ColUnitOfMeasure: m[3],
				}, true
			},
		},
		{
			name: "desc_dash_qty_unit",
			re:   regexp.MustCompile(`(?i)^(.{3,}?)\s*[-–:]\s*` + qtyExpr + `\s*` + unitExpr + `$`),
			build: func(m []string) (fields, bool) {
				return fields{
					internal.ColDescription:   m[1],
					internal.ColQuantity:      m[2],
					internal.ColUnitOfMeasure: m[3],
				}, true
			},
		},
		{
			name: "line_desc_qty",
			re:   regexp.MustCompile(`(?i)^(\d{1,3})[.)]\s+(.{3,}?)\s+` + qtyExpr + `\s*(?:` + unitExpr + `)?$`),
			build: func(m []string) (fields, bool) {
				return fields{
					internal.ColLineNumber:    m[1],
					internal.ColDescription:   m[2],
					internal.ColQuantity:      m[3],
					internal.ColUnitOfMeasure: m[4],
				}, true
			},
		},
		{
			name: "desc_qty_unit",
			re:   regexp.MustCompile(`(?i)^(.{3,}?)\s+` + qtyExpr + `\s*` + unitExpr + `$`),
			build: func(m []string) (fields, bool) {
				if !util.HasLetter(m[1]) {
					return nil, false
				}
				return fields{
					internal.ColDescription:   m[1],
					internal.ColQuantity:      m[2],
					internal.ColUnitOfMeasure: m[3],
				}, true
			},
		},
	}
)

func quoteAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.QuoteMeta(w))
	}
	return out
}

// matchLine runs the pattern table over one line. It returns the fields and
// the name of the pattern that produced them.
func matchLine(line string) (fields, string, bool) {
	s := util.CollapseSpaces(bulletRe.ReplaceAllString(line, ""))
	if s == "" {
		return nil, "", false
	}
	for _, lp := range linePatterns {
		m := lp.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		f, ok := lp.build(m)
		if !ok {
			continue
		}
		return f, lp.name, true
	}
	return nil, "", false
}
