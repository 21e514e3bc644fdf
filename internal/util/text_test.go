package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	in := "Line 1\r\nﬁlter  housing\t\tx\rLast   line"
	require.Equal(t, "Line 1\nfilter housing x\nLast line", NormalizeText(in))
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a \t b\r\n\r\nc",
		"ﬃ ﬄ ﬅ ﬆ",
		"  leading and trailing  ",
		"  nbsp run",
		"single\ttab stays",
		"\r\r\n\n",
	}
	for _, s := range inputs {
		once := NormalizeText(s)
		require.Equal(t, once, NormalizeText(once), "input %q", s)
	}
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, "quantite", NormalizeKey("Quantité"))
	require.Equal(t, "u m", NormalizeKey("U/M"))
	require.Equal(t, "item code", NormalizeKey("  Item-Code: "))
	require.Equal(t, "", NormalizeKey("#"))
}

func TestIsNumeric(t *testing.T) {
	require.True(t, IsNumeric("1 000,50"))
	require.True(t, IsNumeric("12"))
	require.False(t, IsNumeric("ABC-123"))
	require.False(t, IsNumeric("-"))
}

func TestStartsLower(t *testing.T) {
	require.True(t, StartsLower("continuation text"))
	require.False(t, StartsLower("Main item"))
	require.False(t, StartsLower("12 bolts"))
}
