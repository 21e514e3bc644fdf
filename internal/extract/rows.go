package extract

import (
	"regexp"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// Cells are separated by tabs, pipes or runs of two or more spaces.
var cellSplitRe = regexp.MustCompile(`\t+|\s*\|\s*|[ \x{00A0}]{2,}`)

func SplitCells(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	parts := cellSplitRe.Split(trimmed, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = util.CollapseSpaces(util.NormalizeText(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RowsFromText splits text into rows. Cells are split before whitespace is
// normalized so column gaps survive. Blank lines are dropped; LineNumber is
// the 1-based line in text.
func RowsFromText(text string) []internal.ParsedRow {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var rows []internal.ParsedRow
	for i, line := range strings.Split(text, "\n") {
		raw := util.CollapseSpaces(util.NormalizeText(line))
		if raw == "" {
			continue
		}
		rows = append(rows, internal.ParsedRow{
			Raw:          raw,
			Cells:        SplitCells(line),
			LineNumber:   i + 1,
			Continuation: isIndented(line) && util.StartsLower(raw),
		})
	}
	return rows
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ")
}

// TableText renders tables as tab separated lines.
func TableText(tables []internal.Table) string {
	var b strings.Builder
	for _, t := range tables {
		for _, row := range t {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
