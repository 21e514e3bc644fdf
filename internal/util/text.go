package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reHorizontalRun = regexp.MustCompile(`[ \t\x{00A0}]{2,}`)
	reSpaces        = regexp.MustCompile(`\s+`)

	ligatures = strings.NewReplacer(
		"ﬀ", "ff",
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬅ", "st",
		"ﬆ", "st",
	)
)

// NormalizeText canonicalizes raw extracted text: line endings become \n,
// ligature glyphs are expanded and runs of horizontal whitespace collapse to
// one space. Newlines are kept as they are.
func NormalizeText(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = ligatures.Replace(s)
	return reHorizontalRun.ReplaceAllString(s, " ")
}

// CollapseSpaces trims and squeezes all whitespace, newlines included.
func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeKey produces the comparison form used by fuzzy matching:
// lower case, no accents, punctuation replaced by spaces.
func NormalizeKey(input string) string {
	s := StripAccents(strings.ToLower(input))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return CollapseSpaces(b.String())
}

func StripAccents(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}

// SplitLines splits on newlines and drops blank lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsNumeric reports whether s is a number, allowing thousand and decimal
// separators.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ',' || r == ' ' || r == '-' || r == '+':
		default:
			return false
		}
	}
	return digits > 0
}

func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func HasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// StartsLower reports whether the first letter of s is lower case.
func StartsLower(s string) bool {
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) {
			return unicode.IsLower(r)
		}
		return false
	}
	return false
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
