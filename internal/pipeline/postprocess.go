package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"rfqingest/internal"
	"rfqingest/internal/parselog"
	"rfqingest/internal/util"
)

var (
	leadingBulletRe = regexp.MustCompile(`^(?:[-*•·▪►]+|\d{1,3}[.)](?:\s|$))\s*`)
	trailingPriceRe = regexp.MustCompile(`(?i)\s*[-–:]?\s*(?:(?:[€$£]|eur|usd|gbp|chf|mad|xof|dhs?)\s*\d[\d\s.,]*|\d[\d\s.,]*\s*(?:[€$£]|eur|usd|gbp|chf|mad|xof|dhs?))\s*$`)
	trailingNoiseRe = regexp.MustCompile(`\s*(?:\(\s*\d{1,3}\s*\)|[-–]\s*0+(?:[.,]0+)?)\s*$`)
	qtyPrefixRe     = regexp.MustCompile(`^\d+(?:[.,]\d+)?\s*[x×]\s`)
	codeTokenRe     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/.]+$`)
)

// PostResult is the cleaned item list with the statistics the parse log
// records.
type PostResult struct {
	Items             []internal.PriceRequestItem
	Continuations     int
	Duplicates        int
	Confidence        parselog.ConfidenceStats
	NeedsVerification bool
}

// PostProcess runs cleanup, continuation merge, dedup, enrichment and
// confidence scoring, in that order. brands may be nil.
func (p *Parser) PostProcess(items []internal.PriceRequestItem, brands BrandFinder) PostResult {
	items = cleanDescriptions(items)
	items, merged := p.mergeContinuations(items)
	items, dups := dedupItems(items)
	for i := range items {
		enrich(&items[i], brands)
	}
	stats, verify := p.scoreItems(items)
	return PostResult{
		Items:             items,
		Continuations:     merged,
		Duplicates:        dups,
		Confidence:        stats,
		NeedsVerification: verify,
	}
}

// CleanDescription strips bullets, trailing prices and numeric leftovers.
func CleanDescription(desc string) string {
	s := util.CollapseSpaces(util.NormalizeText(desc))
	s = leadingBulletRe.ReplaceAllString(s, "")
	for {
		next := trailingNoiseRe.ReplaceAllString(trailingPriceRe.ReplaceAllString(s, ""), "")
		if next == s {
			break
		}
		s = next
	}
	return util.CollapseSpaces(s)
}

func cleanDescriptions(items []internal.PriceRequestItem) []internal.PriceRequestItem {
	out := make([]internal.PriceRequestItem, 0, len(items))
	for _, it := range items {
		it.Description = CleanDescription(it.Description)
		if utf8.RuneCountInString(it.Description) < 3 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// mergeContinuations folds wrapped description lines into the item before
// them. The same position is retried after each merge.
func (p *Parser) mergeContinuations(items []internal.PriceRequestItem) ([]internal.PriceRequestItem, int) {
	merged := 0
	for i := 1; i < len(items); {
		if !p.isContinuation(items[i-1], items[i]) {
			i++
			continue
		}
		prev, cur := &items[i-1], items[i]
		prev.Description = util.CollapseSpaces(prev.Description + " " + cur.Description)
		if cur.Notes != nil {
			if prev.Notes == nil {
				prev.Notes = cur.Notes
			} else {
				prev.Notes = util.StringPtr(*prev.Notes + "; " + *cur.Notes)
			}
		}
		if prev.Brand == nil {
			prev.Brand = cur.Brand
		}
		if prev.Model == nil {
			prev.Model = cur.Model
		}
		items = append(items[:i], items[i+1:]...)
		merged++
	}
	return items, merged
}

func (p *Parser) isContinuation(prev, cur internal.PriceRequestItem) bool {
	if cur.Quantity != 1 || cur.HasAnyCode() || cur.Source != prev.Source {
		return false
	}
	if cur.LineNumber != nil && !p.opts.MergeNumberedItems {
		return false
	}
	if util.StartsLower(cur.Description) {
		return true
	}
	if endsClause(prev.Description) {
		return true
	}
	return utf8.RuneCountInString(cur.Description) < p.opts.ContinuationMaxLen &&
		!newItemShaped(cur.Description)
}

func endsClause(s string) bool {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{",", ";", ":", "-", "–"} {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// newItemShaped reports whether a description opens like an item of its
// own: a code first or a "3 x" prefix.
func newItemShaped(desc string) bool {
	if qtyPrefixRe.MatchString(desc) {
		return true
	}
	words := strings.Fields(desc)
	if len(words) == 0 {
		return false
	}
	first := words[0]
	return utf8.RuneCountInString(first) >= 3 && util.HasDigit(first) && codeTokenRe.MatchString(first)
}

// dedupItems collapses items sharing description and quantity. The first
// one stays in place and takes fields it lacks from later copies.
func dedupItems(items []internal.PriceRequestItem) ([]internal.PriceRequestItem, int) {
	index := map[string]int{}
	out := make([]internal.PriceRequestItem, 0, len(items))
	for _, it := range items {
		key := strings.ToLower(it.Description) + "|" + strconv.FormatFloat(it.Quantity, 'f', -1, 64)
		if at, ok := index[key]; ok {
			fillMissing(&out[at], it)
			continue
		}
		index[key] = len(out)
		out = append(out, it)
	}
	return out, len(items) - len(out)
}

func fillMissing(dst *internal.PriceRequestItem, src internal.PriceRequestItem) {
	fillString(&dst.InternalCode, src.InternalCode)
	fillString(&dst.SupplierCode, src.SupplierCode)
	fillString(&dst.Reference, src.Reference)
	fillString(&dst.Brand, src.Brand)
	fillString(&dst.Model, src.Model)
	fillString(&dst.Notes, src.Notes)
	fillString(&dst.SerialNumber, src.SerialNumber)
	fillString(&dst.Currency, src.Currency)
	fillString(&dst.DeliveryDate, src.DeliveryDate)
	if dst.LineNumber == nil {
		dst.LineNumber = src.LineNumber
	}
	if dst.UnitPrice == nil {
		dst.UnitPrice = src.UnitPrice
	}
	if dst.TotalPrice == nil {
		dst.TotalPrice = src.TotalPrice
	}
}

func fillString(dst **string, src *string) {
	if (*dst == nil || **dst == "") && src != nil && *src != "" {
		*dst = src
	}
}
