package util

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxQuantity bounds parsed quantities; anything larger is a mis-parse
// (phone numbers, codes, amounts).
const MaxQuantity = 100000

var (
	numberPattern   = regexp.MustCompile(`(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)`)
	reThousandDot   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	reThousandComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
	reAmount        = regexp.MustCompile(`(\d{1,3}(?:[\s.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d+)?)`)
)

var unitAliases = map[string]string{
	"ea": "pcs", "each": "pcs", "pc": "pcs", "pcs": "pcs", "pce": "pcs", "pces": "pcs",
	"piece": "pcs", "pieces": "pcs", "pièce": "pcs", "pièces": "pcs", "u": "pcs", "un": "pcs",
	"unit": "pcs", "units": "pcs", "unite": "pcs", "unité": "pcs", "unites": "pcs", "unités": "pcs",
	"nos": "pcs", "nr": "pcs", "no": "pcs", "qty": "pcs",
	"set": "set", "sets": "set", "kit": "set", "kits": "set", "jeu": "set", "jeux": "set",
	"m": "m", "mtr": "m", "mtrs": "m", "meter": "m", "meters": "m", "metre": "m", "metres": "m", "ml": "m",
	"kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"l": "l", "lt": "l", "ltr": "l", "ltrs": "l", "litre": "l", "litres": "l", "liter": "l", "liters": "l",
	"box": "box", "boxes": "box", "bx": "box", "boite": "box", "boîte": "box", "carton": "box", "ctn": "box",
	"pack": "pack", "packs": "pack", "pk": "pack", "pkt": "pack", "paquet": "pack", "pqt": "pack",
	"pair": "pair", "pairs": "pair", "pr": "pair", "paire": "pair", "paires": "pair",
	"roll": "roll", "rolls": "roll", "rouleau": "roll", "rouleaux": "roll",
	"lot": "lot", "lots": "lot",
	"h": "h", "hr": "h", "hrs": "h", "hour": "h", "hours": "h", "heure": "h", "heures": "h",
	"drum": "drum", "fût": "drum", "fut": "drum",
	"gal": "gal", "gallon": "gal", "gallons": "gal",
	"t": "t", "ton": "t", "tons": "t", "tonne": "t", "tonnes": "t",
}

// UnitWords lists every unit spelling NormalizeUnit recognises, longest first,
// for use in regular expressions.
func UnitWords() []string {
	out := make([]string, 0, len(unitAliases))
	for k := range unitAliases {
		out = append(out, k)
	}
	sortByLenDesc(out)
	return out
}

// IsUnit reports whether token is a known unit spelling.
func IsUnit(token string) bool {
	_, ok := unitAliases[strings.ToLower(strings.Trim(strings.TrimSpace(token), "."))]
	return ok
}

// NormalizeUnit maps a unit spelling to its canonical token. Unknown units
// are lower-cased; empty input yields "pcs".
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.Trim(strings.TrimSpace(unit), "."))
	if u == "" {
		return "pcs"
	}
	if canon, ok := unitAliases[u]; ok {
		return canon
	}
	return u
}

type ParsedQty struct {
	Qty    *float64
	Unit   *string
	QtyRaw *string
}

// ParseQuantity parses one quantity cell. Comma is accepted as decimal
// separator. ok is false when nothing usable is found or the value falls
// outside (0, MaxQuantity].
func ParseQuantity(cell string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(cell), "\u00a0", " ")
	m := numberPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(normalizeNumericToken(m[1]), 64)
	if err != nil {
		return 0, false
	}
	if v <= 0 || v > MaxQuantity {
		return 0, false
	}
	return v, true
}

// ParseAmount parses a price-like cell, ignoring currency symbols.
func ParseAmount(cell string) (float64, bool) {
	m := reAmount.FindString(strings.ReplaceAll(cell, "\u00a0", " "))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(normalizeNumericToken(m), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseQty looks for the last "number unit" pair in a free-text line, or the
// last number when no unit is present.
func ParseQty(input string) ParsedQty {
	line := strings.ReplaceAll(input, "\u00a0", " ")

	qtyRaw := ""
	qtyToken := ""
	var unit string

	wm := qtyWithUnitRe.FindAllStringSubmatch(line, -1)
	if len(wm) > 0 {
		last := wm[len(wm)-1]
		qtyRaw = strings.TrimSpace(last[1] + " " + last[2])
		qtyToken = strings.TrimSpace(last[1])
		unit = NormalizeUnit(last[2])
	} else {
		nm := numberPattern.FindAllStringSubmatch(line, -1)
		if len(nm) > 0 {
			last := nm[len(nm)-1]
			qtyRaw = strings.TrimSpace(last[1])
			qtyToken = strings.TrimSpace(last[1])
		}
	}

	var out ParsedQty
	if qtyToken != "" {
		if parsed, err := strconv.ParseFloat(normalizeNumericToken(qtyToken), 64); err == nil && parsed > 0 && parsed <= MaxQuantity {
			out.Qty = FloatPtr(parsed)
		}
	}
	if unit != "" {
		out.Unit = &unit
	}
	if qtyRaw != "" {
		out.QtyRaw = &qtyRaw
	}
	return out
}

var qtyWithUnitRe = buildQtyWithUnit()

func buildQtyWithUnit() *regexp.Regexp {
	words := UnitWords()
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)(?:^|[^0-9.,])(\d{1,3}(?:[\s.,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)\s*(` + strings.Join(quoted, "|") + `)\b`)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if reThousandDot.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reThousandComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	if strings.Contains(compact, ",") && strings.Contains(compact, ".") {
		// 1.234,56 or 1,234.56: the last separator is the decimal one
		if strings.LastIndex(compact, ",") > strings.LastIndex(compact, ".") {
			compact = strings.ReplaceAll(compact, ".", "")
			return strings.ReplaceAll(compact, ",", ".")
		}
		return strings.ReplaceAll(compact, ",", "")
	}
	return compact
}

func sortByLenDesc(words []string) {
	for i := 1; i < len(words); i++ {
		for j := i; j > 0; j-- {
			a, b := words[j-1], words[j]
			if len(a) > len(b) || (len(a) == len(b) && a <= b) {
				break
			}
			words[j-1], words[j] = b, a
		}
	}
}
