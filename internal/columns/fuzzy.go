package columns

import (
	"strings"
	"unicode/utf8"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

const (
	DefaultThreshold = 0.75

	// abbreviationScore is granted to short forms such as "qty" for
	// "quantity" or "qte" for "quantite".
	abbreviationScore = 0.8
)

// FuzzyMatch scores how close a header cell is to a keyword, in [0,1].
func FuzzyMatch(a, b string) float64 {
	return matchKeys(util.NormalizeKey(a), util.NormalizeKey(b))
}

func matchKeys(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return float64(min(la, lb)) / float64(max(la, lb))
	}
	score := jaccard(a, b)
	if abbreviates(a, b) || abbreviates(b, a) {
		score = max(score, abbreviationScore)
	}
	return score
}

func jaccard(a, b string) float64 {
	sa, sb := charset(a), charset(b)
	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func charset(s string) map[rune]struct{} {
	out := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if r == ' ' {
			continue
		}
		out[r] = struct{}{}
	}
	return out
}

// abbreviates reports whether short is an abbreviation of long: both single
// words, same first and last letter, and short's letters appear in order in
// long.
func abbreviates(short, long string) bool {
	if strings.ContainsRune(short, ' ') || strings.ContainsRune(long, ' ') {
		return false
	}
	rs, rl := []rune(short), []rune(long)
	if len(rs) < 2 || len(rs) >= len(rl) {
		return false
	}
	if rs[0] != rl[0] || rs[len(rs)-1] != rl[len(rl)-1] {
		return false
	}
	i := 0
	for _, r := range rl {
		if i < len(rs) && rs[i] == r {
			i++
		}
	}
	return i == len(rs)
}

type keyword struct {
	text string
	typ  internal.ColumnType
}

// Matcher classifies header cells against a Dictionary.
type Matcher struct {
	dict      *Dictionary
	threshold float64
	keywords  []keyword
	exact     map[string]internal.ColumnType
	maxWords  int
}

func NewMatcher(dict *Dictionary, threshold float64) *Matcher {
	if dict == nil {
		dict = Default()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{dict: dict, threshold: threshold, exact: map[string]internal.ColumnType{}}
	for _, t := range internal.AllColumnTypes() {
		for _, k := range dict.Keywords(t) {
			m.keywords = append(m.keywords, keyword{text: k, typ: t})
			if _, taken := m.exact[k]; !taken {
				m.exact[k] = t
			}
			m.maxWords = max(m.maxWords, len(strings.Fields(k)))
		}
	}
	return m
}

func (m *Matcher) Threshold() float64 { return m.threshold }

func (m *Matcher) Weight(t internal.ColumnType) int { return m.dict.Weight(t) }

// MaxKeywordWords is the word count of the longest keyword.
func (m *Matcher) MaxKeywordWords() int { return m.maxWords }

// Classify returns the single best column type for a cell, or ColUnknown
// with score 0 when nothing reaches the threshold. On equal scores the
// heavier type wins.
func (m *Matcher) Classify(cell string) (internal.ColumnType, float64) {
	key := util.NormalizeKey(cell)
	if key == "" {
		return internal.ColUnknown, 0
	}
	if t, ok := m.exact[key]; ok {
		return t, 1
	}
	best, bestScore := internal.ColUnknown, 0.0
	for _, kw := range m.keywords {
		s := matchKeys(key, kw.text)
		if s > bestScore || (s == bestScore && s > 0 && m.dict.Weight(kw.typ) > m.dict.Weight(best)) {
			best, bestScore = kw.typ, s
		}
	}
	if bestScore < m.threshold {
		return internal.ColUnknown, 0
	}
	return best, bestScore
}

// ClassifyExact only accepts a keyword equal to the normalized text.
func (m *Matcher) ClassifyExact(text string) (internal.ColumnType, bool) {
	t, ok := m.exact[util.NormalizeKey(text)]
	return t, ok
}
