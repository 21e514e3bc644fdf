package pipeline

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"rfqingest/internal"
	"rfqingest/internal/extract"
	"rfqingest/internal/util"
)

// fields holds the text found for each column type of one line.
type fields map[internal.ColumnType]string

// set keeps the first non-empty value for a type.
func (f fields) set(t internal.ColumnType, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, ok := f[t]; !ok {
		f[t] = v
	}
}

const (
	MethodXRanges        = "x_ranges"
	MethodColumns        = "columns"
	MethodTokenAlignment = "token_alignment"
	MethodPatterns       = "patterns"
)

type Fallback struct {
	Triggered   bool   `json:"triggered"`
	Reason      string `json:"reason,omitempty"`
	ItemsBefore int    `json:"itemsBefore"`
	ItemsAfter  int    `json:"itemsAfter"`
}

// Extraction is the outcome of ExtractItems for one document.
type Extraction struct {
	Items    []internal.PriceRequestItem
	Header   internal.HeaderDetection
	Zones    []Zone
	Strategy internal.ContentKind
	Method   string
	Lines    int
	Fallback Fallback
}

// ExtractItems picks the strategy from the richest representation the
// document carries: positions, then tables, then rows, then raw text.
func (p *Parser) ExtractItems(doc internal.NormalizedDocument) Extraction {
	kind := doc.Content()
	var ex Extraction
	switch kind {
	case internal.ContentPositions:
		ex = p.fromPositions(doc)
	case internal.ContentTables:
		ex = p.fromTables(doc)
	case internal.ContentRows:
		ex = p.fromRows(doc, doc.Rows)
	case internal.ContentRawText:
		ex = p.fromRows(doc, rowsFromRaw(doc.RawText))
	default:
		return Extraction{Header: internal.NotFoundHeader(), Strategy: kind}
	}
	ex.Strategy = kind
	p.logger.Debug("items extracted",
		"source", doc.Name,
		"strategy", kind,
		"method", ex.Method,
		"header", ex.Header.Found,
		"items", len(ex.Items),
		"fallback", ex.Fallback.Triggered,
	)
	return ex
}

func rowsFromRaw(text string) []internal.ParsedRow {
	return extract.RowsFromText(text)
}

func tableRows(t internal.Table) []internal.ParsedRow {
	rows := make([]internal.ParsedRow, 0, len(t))
	for i, r := range t {
		cells := make([]string, len(r))
		for j, c := range r {
			cells[j] = util.CollapseSpaces(util.NormalizeText(c))
		}
		rows = append(rows, internal.ParsedRow{
			Raw:        util.CollapseSpaces(strings.Join(cells, " ")),
			Cells:      cells,
			LineNumber: i + 1,
		})
	}
	return rows
}

func tableWidth(t internal.Table) int {
	w := 0
	for _, r := range t {
		w = max(w, len(r))
	}
	return w
}

func (p *Parser) fromRows(doc internal.NormalizedDocument, rows []internal.ParsedRow) Extraction {
	h := p.DetectHeaderRows(rows)
	ex := Extraction{Header: h, Zones: p.DetectZones(rows, h), Lines: len(rows)}
	zoneRows := rowsInZones(rows, ex.Zones)
	if !h.Found {
		ex.Items = p.patternItems(doc.Name, zoneRows)
		ex.Method = MethodPatterns
		return ex
	}
	l := newLayout(h)
	ex.Items = p.layoutItems(doc.Name, zoneRows, l)
	ex.Method = l.method()
	return p.withFallback(ex, doc.Name, zoneRows)
}

func (p *Parser) fromTables(doc internal.NormalizedDocument) Extraction {
	ex := Extraction{Header: internal.NotFoundHeader()}
	var (
		current   *layout
		currentW  int
		methods   []string
		allZoned  []internal.ParsedRow
		rejection internal.HeaderDetection
	)
	for ti, t := range doc.Tables {
		rows := tableRows(t)
		ex.Lines += len(rows)
		h := p.DetectHeaderRows(rows)
		switch {
		case h.Found:
			h.TableIndex = ti
			if !ex.Header.Found {
				ex.Header = h
			}
			current, currentW = newLayout(h), tableWidth(t)
			zones := p.DetectZones(rows, h)
			ex.Zones = append(ex.Zones, zones...)
			zoned := rowsInZones(rows, zones)
			allZoned = append(allZoned, zoned...)
			ex.Items = append(ex.Items, p.layoutItems(doc.Name, zoned, current)...)
			methods = appendOnce(methods, current.method())
		case current != nil && tableWidth(t) == currentW:
			z := Zone{Start: 0, End: len(rows), Method: ZoneHeader}
			ex.Zones = append(ex.Zones, z)
			allZoned = append(allZoned, rows...)
			ex.Items = append(ex.Items, p.layoutItems(doc.Name, rows, current)...)
			methods = appendOnce(methods, current.method())
		default:
			if h.RejectionReason != "" && (rejection.RejectionReason == "" || h.IsFormMetadata) {
				rejection = h
			}
			z := p.DetectZone(rows, h)
			ex.Zones = append(ex.Zones, z)
			zoned := rowsInZones(rows, []Zone{z})
			allZoned = append(allZoned, zoned...)
			ex.Items = append(ex.Items, p.patternItems(doc.Name, zoned)...)
			methods = appendOnce(methods, MethodPatterns)
		}
	}
	ex.Method = strings.Join(methods, "+")
	if !ex.Header.Found {
		if rejection.RejectionReason != "" {
			ex.Header = rejection
		}
		return ex
	}
	return p.withFallback(ex, doc.Name, allZoned)
}

func (p *Parser) fromPositions(doc internal.NormalizedDocument) Extraction {
	lines := GroupTokens(doc.Tokens, p.opts.YTolerance)
	rows := LinesToRows(lines)
	h := p.DetectHeaderRows(rows)
	ex := Extraction{Header: h, Zones: p.DetectZones(rows, h), Lines: len(rows)}
	zoneRows := rowsInZones(rows, ex.Zones)
	if !h.Found {
		ex.Items = p.patternItems(doc.Name, zoneRows)
		ex.Method = MethodPatterns
		return ex
	}

	headerTokens := slices.Clone(lines[h.LineIndex].Tokens)
	if h.Span == 2 && h.LineIndex+1 < len(lines) {
		headerTokens = append(headerTokens, lines[h.LineIndex+1].Tokens...)
	}
	cols, ok := columnRanges(h, headerTokens)
	if !ok {
		l := newLayout(h)
		ex.Items = p.layoutItems(doc.Name, zoneRows, l)
		ex.Method = l.method()
		return p.withFallback(ex, doc.Name, zoneRows)
	}
	ex.Header.Columns = cols
	for _, z := range ex.Zones {
		for i := z.Start; i < z.End; i++ {
			if IsMetadataLine(rows[i].Raw) {
				continue
			}
			f := assignTokens(cols, lines[i].Tokens)
			if it, ok := p.buildItem(f, lines[i].Cells, rows[i], doc.Name); ok {
				ex.Items = append(ex.Items, it)
			}
		}
	}
	ex.Method = MethodXRanges
	return p.withFallback(ex, doc.Name, zoneRows)
}

// withFallback reruns the line patterns over the zone when a header was
// matched but too few items came out of it, and keeps the larger result.
func (p *Parser) withFallback(ex Extraction, source string, zoneRows []internal.ParsedRow) Extraction {
	before := len(ex.Items)
	if before >= p.opts.MinItems {
		return ex
	}
	alt := p.patternItems(source, zoneRows)
	ex.Fallback = Fallback{
		Triggered:   true,
		Reason:      fmt.Sprintf("header matched but only %d items extracted", before),
		ItemsBefore: before,
		ItemsAfter:  max(before, len(alt)),
	}
	if len(alt) > before {
		ex.Items = alt
		ex.Method = MethodPatterns
	}
	return ex
}

func rowsInZones(rows []internal.ParsedRow, zones []Zone) []internal.ParsedRow {
	var out []internal.ParsedRow
	for _, z := range zones {
		if z.Start < z.End {
			out = append(out, rows[z.Start:z.End]...)
		}
	}
	return out
}

func appendOnce(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// patternItems parses free-text lines with the pattern table. A line that
// matches nothing but reads as the tail of the previous item is kept as a
// quantity-less draft so the continuation merge can absorb it.
func (p *Parser) patternItems(source string, rows []internal.ParsedRow) []internal.PriceRequestItem {
	var out []internal.PriceRequestItem
	prevItem := false
	for _, row := range rows {
		if IsMetadataLine(row.Raw) {
			prevItem = false
			continue
		}
		if f, _, ok := matchLine(row.Raw); ok {
			if it, ok := p.buildItem(f, nil, row, source); ok {
				out = append(out, it)
				prevItem = true
				continue
			}
		}
		if prevItem && (row.Continuation || util.StartsLower(row.Raw)) {
			if it, ok := p.buildItem(fields{internal.ColDescription: row.Raw}, nil, row, source); ok {
				out = append(out, it)
				continue
			}
		}
		prevItem = false
	}
	return out
}

// layout maps data cells to column types following a detected header.
type layout struct {
	groups [][]internal.DetectedColumn
	single bool
}

func newLayout(h internal.HeaderDetection) *layout {
	byIndex := map[int][]internal.DetectedColumn{}
	var order []int
	for _, c := range h.Columns {
		if _, ok := byIndex[c.Index]; !ok {
			order = append(order, c.Index)
		}
		byIndex[c.Index] = append(byIndex[c.Index], c)
	}
	slices.Sort(order)
	l := &layout{}
	for _, idx := range order {
		l.groups = append(l.groups, byIndex[idx])
	}
	l.single = len(l.groups) == 1 && len(l.groups[0]) > 1
	return l
}

func (l *layout) method() string {
	for _, g := range l.groups {
		if len(g) > 1 {
			return MethodTokenAlignment
		}
	}
	return MethodColumns
}

func (l *layout) rowFields(row internal.ParsedRow) fields {
	cells := rowCells(row)
	if l.single || (len(cells) == 1 && len(l.groups) > 1) {
		var cols []internal.DetectedColumn
		for _, g := range l.groups {
			cols = append(cols, g...)
		}
		return alignTokens(cols, strings.Fields(rowText(row)))
	}
	f := fields{}
	for _, g := range l.groups {
		idx := g[0].Index
		if idx >= len(cells) {
			continue
		}
		if len(g) == 1 {
			f.set(g[0].Type, cells[idx])
			continue
		}
		for t, v := range alignTokens(g, strings.Fields(cells[idx])) {
			f.set(t, v)
		}
	}
	return f
}

func (p *Parser) layoutItems(source string, rows []internal.ParsedRow, l *layout) []internal.PriceRequestItem {
	var out []internal.PriceRequestItem
	for _, row := range rows {
		if IsMetadataLine(row.Raw) {
			continue
		}
		if it, ok := p.buildItem(l.rowFields(row), rowCells(row), row, source); ok {
			out = append(out, it)
		}
	}
	return out
}

var (
	lineNoRe   = regexp.MustCompile(`^\d{1,4}[.)]?$`)
	amountRe   = regexp.MustCompile(`^[€$£]?\d[\d\s.,]*[€$£]?$`)
	currencyRe = regexp.MustCompile(`^(?:[A-Z]{3}|[€$£])$`)
)

// accepts tells whether a single word can fill a column of type t during
// token alignment. Free-text columns never take a word here.
func accepts(t internal.ColumnType, tok string) bool {
	switch t {
	case internal.ColLineNumber:
		return lineNoRe.MatchString(tok)
	case internal.ColQuantity:
		_, ok := util.ParseQuantity(tok)
		return ok && util.IsNumeric(tok)
	case internal.ColUnitOfMeasure:
		return util.IsUnit(tok)
	case internal.ColItemCode, internal.ColPartNumber, internal.ColModel, internal.ColSerial,
		internal.ColAssetTag, internal.ColDrawingRef:
		return utf8.RuneCountInString(tok) >= 3 && util.HasDigit(tok)
	case internal.ColUnitPrice, internal.ColTotalPrice:
		return amountRe.MatchString(tok)
	case internal.ColCurrency:
		return currencyRe.MatchString(tok)
	case internal.ColDeliveryDate:
		return util.HasDigit(tok)
	}
	return false
}

// alignTokens fills the columns before the description from the left and
// those after it from the right; the description takes what remains.
func alignTokens(cols []internal.DetectedColumn, tokens []string) fields {
	f := fields{}
	d := slices.IndexFunc(cols, func(c internal.DetectedColumn) bool { return c.Type == internal.ColDescription })
	left, right := cols, []internal.DetectedColumn(nil)
	if d >= 0 {
		left, right = cols[:d], cols[d+1:]
	}
	i, j := 0, len(tokens)
	for _, c := range left {
		if i < j && accepts(c.Type, tokens[i]) {
			f.set(c.Type, tokens[i])
			i++
		}
	}
	for k := len(right) - 1; k >= 0; k-- {
		if j > i && accepts(right[k].Type, tokens[j-1]) {
			f.set(right[k].Type, tokens[j-1])
			j--
		}
	}
	if i < j {
		f.set(internal.ColDescription, strings.Join(tokens[i:j], " "))
	}
	return f
}

// buildItem turns typed fields into a draft item. ok is false when no
// usable description is left.
func (p *Parser) buildItem(f fields, cells []string, row internal.ParsedRow, source string) (internal.PriceRequestItem, bool) {
	desc := cleanCell(f[internal.ColDescription])
	if desc == "" {
		desc = longestText(cells, f)
	}
	if utf8.RuneCountInString(desc) < 3 {
		return internal.PriceRequestItem{}, false
	}

	it := internal.PriceRequestItem{
		Description: desc,
		Quantity:    1,
		Unit:        internal.DefaultUnit,
		SourceLine:  row.LineNumber,
		Source:      source,
	}
	unit := f[internal.ColUnitOfMeasure]
	if q, ok := util.ParseQuantity(f[internal.ColQuantity]); ok {
		it.Quantity = q
		if unit == "" {
			if pq := util.ParseQty(f[internal.ColQuantity]); pq.Unit != nil {
				unit = *pq.Unit
			}
		}
	} else {
		it.IsEstimated = true
	}
	if unit != "" {
		it.Unit = util.NormalizeUnit(unit)
	}

	if v := f[internal.ColLineNumber]; v != "" {
		if n, err := strconv.Atoi(strings.TrimRight(v, ".)")); err == nil && n > 0 {
			it.LineNumber = &n
		}
	}
	it.InternalCode = optional(f[internal.ColItemCode])
	it.SupplierCode = optional(f[internal.ColPartNumber])
	it.Brand = optional(f[internal.ColBrand])
	it.Model = optional(f[internal.ColModel])
	it.SerialNumber = optional(f[internal.ColSerial])
	it.Reference = optional(f[internal.ColDrawingRef])
	it.Currency = optional(f[internal.ColCurrency])
	it.DeliveryDate = optional(f[internal.ColDeliveryDate])
	if v, ok := util.ParseAmount(f[internal.ColUnitPrice]); ok {
		it.UnitPrice = &v
	}
	if v, ok := util.ParseAmount(f[internal.ColTotalPrice]); ok {
		it.TotalPrice = &v
	}

	var notes []string
	for _, t := range []internal.ColumnType{internal.ColSpecification, internal.ColRemark} {
		if v := cleanCell(f[t]); v != "" {
			notes = append(notes, v)
		}
	}
	if v := f[internal.ColAssetTag]; v != "" {
		notes = append(notes, "asset "+v)
	}
	if v := f[internal.ColDeliveryLocation]; v != "" {
		notes = append(notes, "deliver to "+v)
	}
	if len(notes) > 0 {
		it.Notes = util.StringPtr(strings.Join(notes, "; "))
	}
	return it, true
}

func optional(v string) *string {
	v = util.CollapseSpaces(v)
	if v == "" {
		return nil
	}
	return &v
}

func cleanCell(v string) string {
	return util.CollapseSpaces(util.NormalizeText(v))
}

// longestText picks the longest cell that is not a number and not already
// used by another field.
func longestText(cells []string, f fields) string {
	used := map[string]struct{}{}
	for _, v := range f {
		used[v] = struct{}{}
	}
	best := ""
	for _, c := range cells {
		c = cleanCell(c)
		if c == "" || util.IsNumeric(c) || !util.HasLetter(c) {
			continue
		}
		if _, ok := used[c]; ok {
			continue
		}
		if utf8.RuneCountInString(c) > utf8.RuneCountInString(best) {
			best = c
		}
	}
	return best
}
