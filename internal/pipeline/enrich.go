package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// BrandFinder looks up a known brand in free text. brands.Snapshot
// implements it.
type BrandFinder interface {
	Find(text string) (string, bool)
}

var (
	// modelPatterns are tried in order; the first acceptable match wins.
	modelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Za-z]{1,4}-?\d{2,}[A-Za-z0-9]*\b`),
		regexp.MustCompile(`\b\d{2,}-[A-Za-z0-9]+\b`),
		regexp.MustCompile(`\b[A-Za-z]+-\d+[A-Za-z0-9]*\b`),
		regexp.MustCompile(`\b\d+(?:/\d+)+\b`),
	}

	supplierCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:ref|réf|reference|référence|p/n|pn|part\s*(?:no|number|#)|code)\s*[.:#°]?\s*([A-Za-z0-9][A-Za-z0-9\-./]{3,})`),
		regexp.MustCompile(`\b([A-Z]{2,}[-.]?\d{3,}[A-Z0-9\-]*)\b`),
		regexp.MustCompile(`\b(\d{3,}[-.][A-Z0-9]{2,}(?:[-.][A-Z0-9]+)*)\b`),
	}

	// codeStopWords are tokens the code patterns pick up that are never
	// supplier codes.
	codeStopWords = map[string]struct{}{
		"EUR": {}, "USD": {}, "GBP": {}, "CHF": {}, "MAD": {}, "XOF": {}, "DH": {}, "DHS": {},
		"TOTAL": {}, "SUBTOTAL": {}, "QTY": {}, "PCS": {}, "UNIT": {}, "UNITS": {}, "PRICE": {},
		"AMOUNT": {}, "TVA": {}, "VAT": {}, "HT": {}, "TTC": {},
	}
)

func enrich(it *internal.PriceRequestItem, brands BrandFinder) {
	if it.Brand == nil && brands != nil {
		if b, ok := brands.Find(it.Description); ok {
			it.Brand = &b
		}
	}
	if it.Model == nil {
		if m, ok := ExtractModel(it.Description); ok {
			it.Model = &m
		}
	}
	if it.SupplierCode == nil {
		if c, ok := ExtractSupplierCode(it.Description); ok && c != util.Deref(it.InternalCode) {
			it.SupplierCode = &c
		}
	}
}

// ExtractModel finds a model number in a description. Purely numeric
// matches and matches under four characters are skipped.
func ExtractModel(desc string) (string, bool) {
	for _, re := range modelPatterns {
		for _, m := range re.FindAllString(desc, -1) {
			if utf8.RuneCountInString(m) < 4 || util.IsNumeric(m) {
				continue
			}
			return m, true
		}
	}
	return "", false
}

// ExtractSupplierCode finds a supplier or manufacturer code in a
// description.
func ExtractSupplierCode(desc string) (string, bool) {
	for _, re := range supplierCodePatterns {
		for _, m := range re.FindAllStringSubmatch(desc, -1) {
			code := strings.TrimRight(m[1], ".-/")
			if utf8.RuneCountInString(code) < 4 || !util.HasDigit(code) || stopCode(code) {
				continue
			}
			return code, true
		}
	}
	return "", false
}

func stopCode(code string) bool {
	upper := strings.ToUpper(code)
	if _, ok := codeStopWords[upper]; ok {
		return true
	}
	prefix := strings.TrimRightFunc(upper, func(r rune) bool {
		return r >= '0' && r <= '9' || r == '.' || r == ',' || r == '-'
	})
	_, ok := codeStopWords[prefix]
	return ok
}
