package pipeline

import (
	"fmt"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// Structural bonuses added to a header score when column types that belong
// together appear in the same row.
const (
	bonusLineQty    = 3
	bonusQtyUnit    = 2
	bonusDescAnchor = 2
	bonusCode       = 1
)

type headerCandidate struct {
	columns      []internal.DetectedColumn
	score        float64
	tokenAligned bool
	text         string
}

func (c headerCandidate) has(t internal.ColumnType) bool {
	for _, col := range c.columns {
		if col.Type == t {
			return true
		}
	}
	return false
}

func (c headerCandidate) distinct() int {
	return distinctTypes(c.columns)
}

func distinctTypes(cols []internal.DetectedColumn) int {
	seen := map[internal.ColumnType]struct{}{}
	for _, col := range cols {
		seen[col.Type] = struct{}{}
	}
	return len(seen)
}

// scoreCells classifies each cell and scores the row. A multi-word cell
// that is not a keyword as a whole is split into words first, so a header
// flattened into one cell still yields its columns.
func (p *Parser) scoreCells(cells []string) headerCandidate {
	c := headerCandidate{text: strings.Join(cells, " ")}
	for i, cell := range cells {
		var segs []internal.DetectedColumn
		if len(strings.Fields(util.NormalizeKey(cell))) >= 2 {
			if t, ok := p.matcher.ClassifyExact(cell); ok {
				c.columns = append(c.columns, internal.DetectedColumn{Type: t, Header: util.CollapseSpaces(cell), Score: 1, Index: i})
				continue
			}
			segs = p.segment(cell, i)
			if distinctTypes(segs) >= 2 {
				c.columns = append(c.columns, segs...)
				c.tokenAligned = true
				continue
			}
		}
		if len(segs) > 0 {
			// one type only: the cell is a single column
			best := segs[0].Score
			for _, sg := range segs[1:] {
				best = max(best, sg.Score)
			}
			c.columns = append(c.columns, internal.DetectedColumn{Type: segs[0].Type, Header: util.CollapseSpaces(cell), Score: best, Index: i})
			continue
		}
		if t, s := p.matcher.Classify(cell); t != internal.ColUnknown {
			c.columns = append(c.columns, internal.DetectedColumn{Type: t, Header: util.CollapseSpaces(cell), Score: s, Index: i})
		}
	}

	// every recognised cell counts, repeated types included
	for _, col := range c.columns {
		c.score += float64(p.matcher.Weight(col.Type)) * col.Score
	}
	line, qty, unit := c.has(internal.ColLineNumber), c.has(internal.ColQuantity), c.has(internal.ColUnitOfMeasure)
	if line && qty {
		c.score += bonusLineQty
	}
	if qty && unit {
		c.score += bonusQtyUnit
	}
	if c.has(internal.ColDescription) && (line || qty) {
		c.score += bonusDescAnchor
	}
	if c.has(internal.ColItemCode) || c.has(internal.ColPartNumber) {
		c.score += bonusCode
	}
	return c
}

// segment walks the words of a cell, taking the longest exact keyword span
// of up to three words, else a single fuzzily matched word.
func (p *Parser) segment(cell string, index int) []internal.DetectedColumn {
	words := strings.Fields(cell)
	maxSpan := min(3, max(1, p.matcher.MaxKeywordWords()))
	var out []internal.DetectedColumn
	for i := 0; i < len(words); {
		matched := false
		for n := min(maxSpan, len(words)-i); n >= 2; n-- {
			span := strings.Join(words[i:i+n], " ")
			if t, ok := p.matcher.ClassifyExact(span); ok {
				out = append(out, internal.DetectedColumn{Type: t, Header: span, Score: 1, Index: index})
				i += n
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if t, s := p.matcher.Classify(words[i]); t != internal.ColUnknown {
			out = append(out, internal.DetectedColumn{Type: t, Header: words[i], Score: s, Index: index})
		}
		i++
	}
	return out
}

// gate applies the validity rules. The returned reason is empty for an
// acceptable header.
func (p *Parser) gate(c headerCandidate) (reason string, formMetadata bool) {
	hits := formMetadataHits(c.text)
	desc := c.has(internal.ColDescription)
	if hits >= 2 || (hits == 1 && !desc) {
		return "form metadata row", true
	}
	if c.score < p.opts.HeaderMinScore {
		return fmt.Sprintf("score %.1f below minimum %.1f", c.score, p.opts.HeaderMinScore), false
	}
	if !desc && !(c.has(internal.ColQuantity) && c.distinct() >= 2) {
		return "no description column and no quantity with another column", false
	}
	return "", false
}

// looksLikeData reports whether a row reads as an item line rather than the
// second line of a wrapped header: numeric first cell or at least half
// numeric cells, unless every other word is a header term.
func (p *Parser) looksLikeData(row internal.ParsedRow) bool {
	cells := row.Cells
	if len(cells) <= 1 {
		cells = strings.Fields(row.Raw)
	}
	if len(cells) == 0 {
		return false
	}
	numeric := 0
	var words []string
	for _, c := range cells {
		if util.IsNumeric(c) {
			numeric++
			continue
		}
		words = append(words, strings.Fields(c)...)
	}
	if !util.IsNumeric(cells[0]) && numeric*2 < len(cells) {
		return false
	}
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if t, _ := p.matcher.Classify(w); t == internal.ColUnknown {
			return true
		}
	}
	return false
}

func rowCells(row internal.ParsedRow) []string {
	if len(row.Cells) > 0 {
		return row.Cells
	}
	return []string{row.Raw}
}

func rowText(row internal.ParsedRow) string {
	if row.Raw != "" {
		return row.Raw
	}
	return util.CollapseSpaces(strings.Join(row.Cells, " "))
}

// DetectHeaderRows scans the first rows for the best item table header.
func (p *Parser) DetectHeaderRows(rows []internal.ParsedRow) internal.HeaderDetection {
	limit := min(p.opts.MaxSearchLines, len(rows))
	best := internal.NotFoundHeader()
	rejected := internal.NotFoundHeader()

	for i := 0; i < limit; i++ {
		single := p.scoreCells(rowCells(rows[i]))
		cand, span := single, 1

		// a wrapped header joins the next line when the pair beats the best
		// header so far and the next line alone
		if i+1 < len(rows) && !p.looksLikeData(rows[i+1]) {
			next := p.scoreCells(rowCells(rows[i+1]))
			combined := p.scoreCells([]string{rowText(rows[i]) + " " + rowText(rows[i+1])})
			if combined.score > best.Score && combined.score > next.score {
				cand, span = combined, 2
			}
		}

		reason, form := p.gate(cand)
		if reason != "" {
			if (form || cand.score >= p.opts.HeaderMinScore) && betterRejection(rejected, cand.score, form) {
				rejected = internal.HeaderDetection{
					Score:           cand.score,
					LineIndex:       -1,
					Columns:         cand.columns,
					RawText:         cand.text,
					RejectionReason: fmt.Sprintf("line %d: %s", i, reason),
					IsFormMetadata:  form,
					Span:            span,
					TableIndex:      -1,
				}
			}
			continue
		}
		if cand.score > best.Score {
			best = internal.HeaderDetection{
				Found:        true,
				Score:        cand.score,
				LineIndex:    i,
				Columns:      cand.columns,
				RawText:      cand.text,
				Span:         span,
				TokenAligned: cand.tokenAligned,
				TableIndex:   -1,
			}
		}
		if span == 2 {
			i++
		}
		if best.Score >= p.opts.HeaderStrongScore {
			break
		}
	}

	if best.Found {
		return best
	}
	if rejected.RejectionReason != "" {
		return rejected
	}
	return best
}

// betterRejection prefers form metadata rows, then higher scores.
func betterRejection(cur internal.HeaderDetection, score float64, form bool) bool {
	switch {
	case cur.RejectionReason == "":
		return true
	case form != cur.IsFormMetadata:
		return form
	}
	return score > cur.Score
}

// DetectHeader looks for a header in rows, then in each table, then in the
// raw text lines.
func (p *Parser) DetectHeader(doc internal.NormalizedDocument) internal.HeaderDetection {
	var rejected internal.HeaderDetection
	keep := func(h internal.HeaderDetection) {
		if h.RejectionReason != "" && (rejected.RejectionReason == "" || h.IsFormMetadata) {
			rejected = h
		}
	}

	if doc.HasPositions && len(doc.Tokens) > 0 {
		h := p.DetectHeaderRows(LinesToRows(GroupTokens(doc.Tokens, p.opts.YTolerance)))
		if h.Found {
			return h
		}
		keep(h)
	}
	if len(doc.Rows) > 0 {
		h := p.DetectHeaderRows(doc.Rows)
		if h.Found {
			return h
		}
		keep(h)
	}
	for ti, t := range doc.Tables {
		h := p.DetectHeaderRows(tableRows(t))
		if h.Found {
			h.TableIndex = ti
			return h
		}
		keep(h)
	}
	if doc.RawText != "" && len(doc.Rows) == 0 {
		h := p.DetectHeaderRows(rowsFromRaw(doc.RawText))
		if h.Found {
			return h
		}
		keep(h)
	}
	if rejected.RejectionReason != "" {
		return rejected
	}
	return internal.NotFoundHeader()
}
