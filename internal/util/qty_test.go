package util

import "testing"

func TestParseQty(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		unit  string
	}{
		{name: "thousand with space", input: "Cable 1 000 pcs", want: 1000, unit: "pcs"},
		{name: "decimal comma", input: "Wire 1,5 m", want: 1.5, unit: "m"},
		{name: "decimal dot", input: "Wire 1.5 m", want: 1.5, unit: "m"},
		{name: "thousand dot", input: "Cable 1.000 ea", want: 1000, unit: "pcs"},
		{name: "dimension and qty", input: "Cable 3x2.5 100 pcs", want: 100, unit: "pcs"},
		{name: "french unit", input: "Gants de protection 12 paires", want: 12, unit: "pair"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseQty(tc.input)
			if parsed.Qty == nil {
				t.Fatalf("qty is nil")
			}
			if *parsed.Qty != tc.want {
				t.Fatalf("got %v want %v", *parsed.Qty, tc.want)
			}
			if parsed.Unit == nil || *parsed.Unit != tc.unit {
				t.Fatalf("unit=%v want %s", parsed.Unit, tc.unit)
			}
		})
	}
}

func TestParseQuantityBounds(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"10", 10, true},
		{"2,5", 2.5, true},
		{"1.234,50", 1234.5, true},
		{"100000", 100000, true},
		{"100001", 0, false},
		{"0", 0, false},
		{"-3", 3, true},
		{"", 0, false},
		{"EA", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseQuantity(tc.input)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseQuantity(%q) = %v,%v want %v,%v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeUnit(t *testing.T) {
	cases := map[string]string{
		"EA":     "pcs",
		"SET":    "set",
		"pcs":    "pcs",
		"":       "pcs",
		"Mtrs.":  "m",
		"Pièces": "pcs",
		"drums":  "drums",
	}
	for in, want := range cases {
		if got := NormalizeUnit(in); got != want {
			t.Fatalf("NormalizeUnit(%q)=%q want %q", in, got, want)
		}
	}
}
