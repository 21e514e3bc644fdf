package pipeline

import (
	"unicode/utf8"

	"rfqingest/internal"
	"rfqingest/internal/parselog"
)

const (
	confidenceBase      = 0.5
	confidenceQuantity  = 0.2
	confidenceUnit      = 0.1
	confidenceCode      = 0.1
	confidenceReference = 0.1
	confidenceShortDesc = 0.2
	shortDescription    = 10
)

// ItemConfidence scores how complete a draft item is, in [0,1].
func ItemConfidence(it internal.PriceRequestItem) float64 {
	c := confidenceBase
	if !it.IsEstimated && it.Quantity > 0 {
		c += confidenceQuantity
		if it.Unit != "" {
			c += confidenceUnit
		}
	}
	if it.InternalCode != nil && *it.InternalCode != "" {
		c += confidenceCode
	}
	if (it.SupplierCode != nil && *it.SupplierCode != "") || (it.Reference != nil && *it.Reference != "") {
		c += confidenceReference
	}
	if utf8.RuneCountInString(it.Description) < shortDescription {
		c -= confidenceShortDesc
	}
	return min(1, max(0, c))
}

// scoreItems sets Confidence and NeedsManualReview on every item and
// reports whether the share of weak items calls for a human check.
func (p *Parser) scoreItems(items []internal.PriceRequestItem) (parselog.ConfidenceStats, bool) {
	var stats parselog.ConfidenceStats
	if len(items) == 0 {
		return stats, false
	}
	sum := 0.0
	stats.Min = 1
	for i := range items {
		c := ItemConfidence(items[i])
		items[i].Confidence = c
		items[i].NeedsManualReview = c < p.opts.LowConfidence
		if items[i].NeedsManualReview {
			stats.LowCount++
		}
		stats.Min = min(stats.Min, c)
		stats.Max = max(stats.Max, c)
		sum += c
	}
	stats.Average = sum / float64(len(items))
	stats.LowRatio = float64(stats.LowCount) / float64(len(items))
	return stats, stats.LowRatio > p.opts.MaxLowRatio
}
