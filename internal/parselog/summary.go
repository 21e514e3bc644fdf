package parselog

import (
	"fmt"
	"strings"
)

// Summary renders a log for people reading it in a terminal.
func Summary(l ParseLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "request %s  (%d ms)\n", l.RequestID, l.DurationMs)
	fmt.Fprintf(&b, "sources: %s\n", joinOrDash(l.Sources))
	fmt.Fprintf(&b, "input types: %s\n", joinOrDash(l.InputTypes))
	if l.Method != "" {
		fmt.Fprintf(&b, "method: %s\n", l.Method)
	}
	if len(l.Paths) > 0 {
		fmt.Fprintf(&b, "paths: %s\n", strings.Join(l.Paths, ", "))
	}
	for _, h := range l.Headers {
		switch {
		case h.Found:
			fmt.Fprintf(&b, "header [%s]: line %d score %.1f columns %s\n", h.Source, h.LineIndex, h.Score, strings.Join(h.Columns, ","))
		case h.RejectionReason != "":
			fmt.Fprintf(&b, "header [%s]: rejected (%s)\n", h.Source, h.RejectionReason)
		default:
			fmt.Fprintf(&b, "header [%s]: not found\n", h.Source)
		}
	}
	for _, z := range l.Zones {
		fmt.Fprintf(&b, "zone [%s]: %d-%d via %s\n", z.Source, z.Start, z.End, z.Method)
	}
	for _, f := range l.Fallbacks {
		if f.Triggered {
			fmt.Fprintf(&b, "fallback [%s]: %s (%d -> %d items)\n", f.Source, f.Reason, f.ItemsBefore, f.ItemsAfter)
		}
	}
	fmt.Fprintf(&b, "lines: %d  items: %d  continuations merged: %d\n", l.ExtractedLines, l.ItemCount, l.Continuations)
	if l.Confidence != nil {
		c := l.Confidence
		fmt.Fprintf(&b, "confidence: min %.2f avg %.2f max %.2f  low %d (%.0f%%)\n", c.Min, c.Average, c.Max, c.LowCount, c.LowRatio*100)
	}
	if l.OCRUsed {
		b.WriteString("ocr: used\n")
	}
	if n := len(l.FilteredImages); n > 0 {
		reasons := make([]string, 0, n)
		for _, img := range l.FilteredImages {
			reasons = append(reasons, fmt.Sprintf("%s=%s", img.Name, img.Reason))
		}
		fmt.Fprintf(&b, "images filtered: %d (%s)\n", n, strings.Join(reasons, ", "))
	}
	if n := len(l.ProcessedImages); n > 0 {
		fmt.Fprintf(&b, "images processed: %d\n", n)
	}
	if l.Classification != nil {
		fmt.Fprintf(&b, "classification: %s (%.2f)\n", l.Classification.Label, l.Classification.Score)
	}
	if l.ReferenceNumber != "" {
		fmt.Fprintf(&b, "reference: %s\n", l.ReferenceNumber)
	}
	fmt.Fprintf(&b, "needs verification: %t\n", l.NeedsVerification)
	for _, w := range l.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	for _, e := range l.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	return b.String()
}

func joinOrDash(v []string) string {
	if len(v) == 0 {
		return "-"
	}
	return strings.Join(v, ", ")
}
