package parselog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(250 * time.Millisecond)
		return t
	}
}

func TestBuilderChainsAndFreezes(t *testing.T) {
	b := newWithClock("req-1", fixedClock())
	b.AddSource("body").
		AddSource("rfq.xlsx").
		AddInputType("email_text").
		AddInputType("excel").
		AddInputType("excel").
		SetHeader(HeaderFromDetection("rfq.xlsx", internal.HeaderDetection{
			Found: true, Score: 24, LineIndex: 0, Span: 1,
			Columns: []internal.DetectedColumn{{Type: internal.ColQuantity}, {Type: internal.ColDescription}},
		})).
		SetFallback(FallbackInfo{Source: "body", Triggered: true, Reason: "header matched but only 1 items", ItemsBefore: 1, ItemsAfter: 4}).
		AddWarning("image001.png skipped").
		SetClassification(Classification{Label: "request", Score: 0.8, Reasons: []string{"keyword:rfq"}}).
		SetNeedsVerification(true)

	log := b.Build()
	require.Equal(t, "req-1", log.RequestID)
	require.Equal(t, []string{"email_text", "excel"}, log.InputTypes)
	require.Equal(t, []string{"quantity", "description"}, log.Headers[0].Columns)
	require.EqualValues(t, 250, log.DurationMs)
	require.True(t, log.NeedsVerification)

	b.AddWarning("late").SetNeedsVerification(false).SetItemCount(99)
	again := b.Build()
	require.Equal(t, log, again)

	log.Warnings[0] = "mutated"
	log.Classification.Reasons[0] = "mutated"
	third := b.Build()
	require.Equal(t, "image001.png skipped", third.Warnings[0])
	require.Equal(t, "keyword:rfq", third.Classification.Reasons[0])
}

func TestJSONShape(t *testing.T) {
	log := New("req-2").MarkOCRUsed().SetReference("RFQ-2024-001").Build()
	data, err := json.Marshal(log)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, "req-2", m["requestId"])
	require.Equal(t, true, m["ocrUsed"])
	require.Equal(t, "RFQ-2024-001", m["referenceNumber"])
}

func TestSummary(t *testing.T) {
	b := newWithClock("req-3", fixedClock())
	b.AddSource("body").
		SetHeader(HeaderInfo{Source: "body", RejectionReason: "form metadata row", IsFormMetadata: true}).
		SetZone(ZoneInfo{Source: "body", Start: 2, End: 9, Method: "heuristic"}).
		AddFilteredImage(internal.FilteredImage{Name: "logo.png", Reason: internal.ReasonLogo}).
		SetConfidence(ConfidenceStats{Min: 0.4, Max: 0.9, Average: 0.7, LowCount: 1, LowRatio: 0.25}).
		AddError("scan.pdf: corrupt")
	out := Summary(b.Build())
	require.Contains(t, out, "request req-3")
	require.Contains(t, out, "header [body]: rejected (form metadata row)")
	require.Contains(t, out, "zone [body]: 2-9 via heuristic")
	require.Contains(t, out, "logo.png=logo")
	require.Contains(t, out, "low 1 (25%)")
	require.Contains(t, out, "error: scan.pdf: corrupt")
}
