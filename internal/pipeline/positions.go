package pipeline

import (
	"math"
	"slices"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// Line is a run of tokens sharing a page and a y bucket, left to right.
type Line struct {
	Page   int
	Y      float64
	Tokens []internal.PositionToken
	// Cells split the line where the horizontal gap between two tokens is
	// wider than three bucket heights.
	Cells []string
}

func (l Line) Text() string {
	parts := make([]string, 0, len(l.Tokens))
	for _, t := range l.Tokens {
		parts = append(parts, t.Text)
	}
	return util.CollapseSpaces(strings.Join(parts, " "))
}

// GroupTokens buckets tokens by page and round(y/tolerance). Lines come back
// top to bottom, page by page.
func GroupTokens(tokens []internal.PositionToken, tolerance float64) []Line {
	if tolerance <= 0 {
		tolerance = DefaultOptions().YTolerance
	}
	type key struct {
		page   int
		bucket int
	}
	buckets := map[key][]internal.PositionToken{}
	var order []key
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		k := key{page: t.Page, bucket: int(math.Round(t.Y / tolerance))}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], t)
	}
	slices.SortFunc(order, func(a, b key) int {
		if a.page != b.page {
			return a.page - b.page
		}
		return a.bucket - b.bucket
	})

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		toks := buckets[k]
		slices.SortStableFunc(toks, func(a, b internal.PositionToken) int {
			switch {
			case a.X < b.X:
				return -1
			case a.X > b.X:
				return 1
			}
			return 0
		})
		lines = append(lines, Line{
			Page:   k.page,
			Y:      float64(k.bucket) * tolerance,
			Tokens: toks,
			Cells:  gapCells(toks, 3*tolerance),
		})
	}
	return lines
}

func gapCells(tokens []internal.PositionToken, gap float64) []string {
	var cells []string
	var cur []string
	for i, t := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			if t.X-(prev.X+prev.Width) > gap {
				cells = append(cells, strings.Join(cur, " "))
				cur = nil
			}
		}
		cur = append(cur, t.Text)
	}
	if len(cur) > 0 {
		cells = append(cells, strings.Join(cur, " "))
	}
	return cells
}

// LinesToRows exposes grouped lines to the row based detectors.
// LineNumber is the 1-based index in lines.
func LinesToRows(lines []Line) []internal.ParsedRow {
	rows := make([]internal.ParsedRow, 0, len(lines))
	for i, l := range lines {
		rows = append(rows, internal.ParsedRow{Raw: l.Text(), Cells: l.Cells, LineNumber: i + 1})
	}
	return rows
}

// columnRanges locates every detected column among the header line tokens
// and returns the columns with XRange set. ok is false when a column could
// not be placed.
func columnRanges(header internal.HeaderDetection, tokens []internal.PositionToken) ([]internal.DetectedColumn, bool) {
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = util.NormalizeKey(t.Text)
	}
	out := make([]internal.DetectedColumn, 0, len(header.Columns))
	from := 0
	for _, col := range header.Columns {
		want := util.NormalizeKey(col.Header)
		start, end, found := findTokenSpan(keys, want, from)
		if !found {
			return nil, false
		}
		r := internal.XRange{Min: tokens[start].X, Max: tokens[end-1].X + tokens[end-1].Width}
		col.XRange = &r
		out = append(out, col)
		from = end
	}
	return out, true
}

// findTokenSpan finds consecutive keys, starting at or after from, whose
// joined form equals want.
func findTokenSpan(keys []string, want string, from int) (int, int, bool) {
	for i := from; i < len(keys); i++ {
		if keys[i] == "" {
			continue
		}
		joined := ""
		for j := i; j < len(keys); j++ {
			if keys[j] == "" {
				continue
			}
			if joined == "" {
				joined = keys[j]
			} else {
				joined += " " + keys[j]
			}
			if joined == want {
				return i, j + 1, true
			}
			if len(joined) >= len(want) {
				break
			}
		}
	}
	return 0, 0, false
}

// assignTokens places each token of a data line in the column whose x range
// is nearest to the token centre. Text for a column keeps token order.
func assignTokens(cols []internal.DetectedColumn, tokens []internal.PositionToken) fields {
	parts := map[internal.ColumnType][]string{}
	for _, t := range tokens {
		center := t.X + t.Width/2
		best, bestDist := -1, math.Inf(1)
		for i, c := range cols {
			d := rangeDistance(*c.XRange, center)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			continue
		}
		typ := cols[best].Type
		parts[typ] = append(parts[typ], t.Text)
	}
	out := fields{}
	for typ, p := range parts {
		out[typ] = strings.Join(p, " ")
	}
	return out
}

func rangeDistance(r internal.XRange, x float64) float64 {
	switch {
	case x < r.Min:
		return r.Min - x
	case x > r.Max:
		return x - r.Max
	}
	return 0
}
