package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
	"rfqingest/internal/brands"
	"rfqingest/internal/util"
)

func draft(desc string, qty float64, estimated bool) internal.PriceRequestItem {
	return internal.PriceRequestItem{Description: desc, Quantity: qty, Unit: "pcs", IsEstimated: estimated, Source: "body"}
}

func TestCleanDescription(t *testing.T) {
	cases := map[string]string{
		"- Ball bearing 6204 - 12,50 EUR": "Ball bearing 6204",
		"2. Gasket set (3)":               "Gasket set",
		"Filter element - 0,00":           "Filter element",
		"•  V-belt   A42":                 "V-belt A42",
		"Pump impeller $ 120.00":          "Pump impeller",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanDescription(in), in)
	}
}

func TestMergeContinuation(t *testing.T) {
	p := newTestParser()
	first := draft("Main item description", 5, false)
	first.InternalCode = util.StringPtr("A-100")
	items := []internal.PriceRequestItem{first, draft("continuation text here", 1, true)}

	res := p.PostProcess(items, nil)
	require.Len(t, res.Items, 1)
	require.Equal(t, 1, res.Continuations)
	require.Equal(t, "Main item description continuation text here", res.Items[0].Description)
	require.Equal(t, 5.0, res.Items[0].Quantity)
	require.InDelta(t, 0.9, res.Items[0].Confidence, 0.001)
}

func TestContinuationRules(t *testing.T) {
	p := newTestParser()

	require.True(t, p.isContinuation(draft("Hydraulic hose assembly,", 2, false), draft("DN 12 500 mm long", 1, true)))
	require.True(t, p.isContinuation(draft("Pump impeller", 2, false), draft("Bronze material", 1, true)))

	require.True(t, p.isContinuation(draft("Pump impeller", 2, false), draft("Bronze material", 1, false)))

	require.False(t, p.isContinuation(draft("Pump impeller", 2, false), draft("SKF6204 bearing", 1, true)))
	require.False(t, p.isContinuation(draft("Pump impeller", 2, false), draft("3 x Bronze bushing", 1, true)))
	require.False(t, p.isContinuation(draft("Pump impeller", 2, false), draft("spare gasket", 2, false)))

	other := draft("spare gasket", 1, true)
	other.Source = "list.xlsx"
	require.False(t, p.isContinuation(draft("Pump impeller", 2, false), other))
}

func TestStatedQuantityOfOneStillMerges(t *testing.T) {
	p := newTestParser()
	items := []internal.PriceRequestItem{
		draft("Pump impeller", 2, false),
		draft("Bronze material", 1, false),
	}

	res := p.PostProcess(items, nil)
	require.Len(t, res.Items, 1)
	require.Equal(t, 1, res.Continuations)
	require.Equal(t, "Pump impeller Bronze material", res.Items[0].Description)
	require.Equal(t, 2.0, res.Items[0].Quantity)
}

func TestNumberedItemsMergeOnlyWhenEnabled(t *testing.T) {
	numbered := draft("spare gasket", 1, true)
	n := 4
	numbered.LineNumber = &n
	require.False(t, numbered.HasAnyCode())

	p := newTestParser()
	require.False(t, p.isContinuation(draft("Pump impeller", 2, false), numbered))

	opts := DefaultOptions()
	opts.MergeNumberedItems = true
	p = NewParser(nil, opts, nil)
	require.True(t, p.isContinuation(draft("Pump impeller", 2, false), numbered))
}

func TestDedupKeepsFirstAndFillsGaps(t *testing.T) {
	dup := draft("bearing 6204", 2, false)
	dup.Brand = util.StringPtr("SKF")
	items := []internal.PriceRequestItem{
		draft("Bearing 6204", 2, false),
		dup,
		draft("Bearing 6204", 3, false),
	}
	out, dups := dedupItems(items)
	require.Equal(t, 1, dups)
	require.Len(t, out, 2)
	require.Equal(t, "Bearing 6204", out[0].Description)
	require.Equal(t, "SKF", *out[0].Brand)
	require.Equal(t, 3.0, out[1].Quantity)
	require.Nil(t, out[1].Brand)
}

func TestEnrich(t *testing.T) {
	it := draft("Roulement SKF 6204 ref: 4471-220", 2, false)
	enrich(&it, brands.Builtin())
	require.Equal(t, "SKF", *it.Brand)
	require.Equal(t, "4471-220", *it.SupplierCode)

	it = draft("Valve type DN50 PN16", 1, false)
	enrich(&it, nil)
	require.Nil(t, it.Brand)
	require.Equal(t, "DN50", *it.Model)

	kept := draft("Seal kit FAG", 1, false)
	kept.Brand = util.StringPtr("Other")
	enrich(&kept, brands.Builtin())
	require.Equal(t, "Other", *kept.Brand)
}

func TestSupplierCodeStopWords(t *testing.T) {
	_, ok := ExtractSupplierCode("Total TVA-2000")
	require.False(t, ok)
	code, ok := ExtractSupplierCode("Motor ABB-3410 4kW")
	require.True(t, ok)
	require.Equal(t, "ABB-3410", code)
}

func TestItemConfidence(t *testing.T) {
	require.InDelta(t, 0.8, ItemConfidence(draft("Hydraulic filter", 4, false)), 0.001)
	require.InDelta(t, 0.5, ItemConfidence(draft("Hydraulic filter", 1, true)), 0.001)
	require.InDelta(t, 0.3, ItemConfidence(draft("Bolt", 1, true)), 0.001)

	full := draft("Hydraulic filter", 4, false)
	full.InternalCode = util.StringPtr("12345")
	full.SupplierCode = util.StringPtr("HF-200")
	require.InDelta(t, 1.0, ItemConfidence(full), 0.001)
}

func TestLowConfidenceShareNeedsVerification(t *testing.T) {
	p := newTestParser()
	numbered := func(desc string, line int) internal.PriceRequestItem {
		it := draft(desc, 1, true)
		it.LineNumber = &line
		return it
	}
	res := p.PostProcess([]internal.PriceRequestItem{
		draft("Hydraulic filter element", 4, false),
		numbered("Gasket", 2),
		numbered("Nut", 3),
	}, nil)
	require.Len(t, res.Items, 3)
	require.Equal(t, 2, res.Confidence.LowCount)
	require.True(t, res.NeedsVerification)
	require.True(t, res.Items[1].NeedsManualReview)
	require.False(t, res.Items[0].NeedsManualReview)

	res = p.PostProcess([]internal.PriceRequestItem{draft("Hydraulic filter element", 4, false)}, nil)
	require.False(t, res.NeedsVerification)
	require.InDelta(t, 0.8, res.Confidence.Average, 0.001)
}

func TestPostProcessDropsShortDescriptions(t *testing.T) {
	p := newTestParser()
	res := p.PostProcess([]internal.PriceRequestItem{draft("- 12,00 EUR", 1, true), draft("Oil seal", 2, false)}, nil)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Oil seal", res.Items[0].Description)
}
