package parselog

import (
	"slices"
	"time"

	"rfqingest/internal"
)

type HeaderInfo struct {
	Source          string   `json:"source"`
	Found           bool     `json:"found"`
	Score           float64  `json:"score"`
	LineIndex       int      `json:"lineIndex"`
	Span            int      `json:"span"`
	Columns         []string `json:"columns,omitempty"`
	RawText         string   `json:"rawText,omitempty"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
	IsFormMetadata  bool     `json:"isFormMetadata,omitempty"`
}

func HeaderFromDetection(source string, h internal.HeaderDetection) HeaderInfo {
	cols := make([]string, 0, len(h.Columns))
	for _, c := range h.Columns {
		cols = append(cols, c.Type.String())
	}
	return HeaderInfo{
		Source:          source,
		Found:           h.Found,
		Score:           h.Score,
		LineIndex:       h.LineIndex,
		Span:            h.Span,
		Columns:         cols,
		RawText:         h.RawText,
		RejectionReason: h.RejectionReason,
		IsFormMetadata:  h.IsFormMetadata,
	}
}

type FallbackInfo struct {
	Source      string `json:"source"`
	Triggered   bool   `json:"triggered"`
	Reason      string `json:"reason,omitempty"`
	ItemsBefore int    `json:"itemsBefore"`
	ItemsAfter  int    `json:"itemsAfter"`
}

type ZoneInfo struct {
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Method string `json:"method"`
}

type ConfidenceStats struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Average  float64 `json:"average"`
	LowCount int     `json:"lowCount"`
	LowRatio float64 `json:"lowRatio"`
}

type Classification struct {
	Label   string   `json:"label"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// ParseLog is the audit record of one ingestion run. Values returned by
// Builder.Build share no memory with the builder.
type ParseLog struct {
	RequestID         string                   `json:"requestId"`
	StartedAt         time.Time                `json:"startedAt"`
	DurationMs        int64                    `json:"durationMs"`
	Sources           []string                 `json:"sources"`
	InputTypes        []string                 `json:"inputTypes"`
	Headers           []HeaderInfo             `json:"headers,omitempty"`
	Fallbacks         []FallbackInfo           `json:"fallbacks,omitempty"`
	Zones             []ZoneInfo               `json:"zones,omitempty"`
	OCRUsed           bool                     `json:"ocrUsed"`
	FilteredImages    []internal.FilteredImage `json:"filteredImages,omitempty"`
	ProcessedImages   []string                 `json:"processedImages,omitempty"`
	ExtractedLines    int                      `json:"extractedLines"`
	ItemCount         int                      `json:"itemCount"`
	Continuations     int                      `json:"continuations"`
	Paths             []string                 `json:"paths,omitempty"`
	Method            string                   `json:"method,omitempty"`
	Confidence        *ConfidenceStats         `json:"confidence,omitempty"`
	Classification    *Classification          `json:"classification,omitempty"`
	ReferenceNumber   string                   `json:"referenceNumber,omitempty"`
	NeedsVerification bool                     `json:"needsVerification"`
	Warnings          []string                 `json:"warnings,omitempty"`
	Errors            []string                 `json:"errors,omitempty"`
}

// Builder accumulates a ParseLog during one ingestion call. It is not safe
// for concurrent use. After Build every setter is a no-op.
type Builder struct {
	log    ParseLog
	now    func() time.Time
	frozen bool
}

func New(requestID string) *Builder {
	return newWithClock(requestID, time.Now)
}

func newWithClock(requestID string, now func() time.Time) *Builder {
	return &Builder{log: ParseLog{RequestID: requestID, StartedAt: now()}, now: now}
}

func (b *Builder) RequestID() string { return b.log.RequestID }

func (b *Builder) edit(fn func(*ParseLog)) *Builder {
	if !b.frozen {
		fn(&b.log)
	}
	return b
}

func (b *Builder) AddSource(name string) *Builder {
	return b.edit(func(l *ParseLog) { l.Sources = append(l.Sources, name) })
}

// AddInputType records a detected input type once.
func (b *Builder) AddInputType(t string) *Builder {
	return b.edit(func(l *ParseLog) {
		if !slices.Contains(l.InputTypes, t) {
			l.InputTypes = append(l.InputTypes, t)
		}
	})
}

func (b *Builder) SetHeader(h HeaderInfo) *Builder {
	return b.edit(func(l *ParseLog) { l.Headers = append(l.Headers, h) })
}

func (b *Builder) SetFallback(f FallbackInfo) *Builder {
	return b.edit(func(l *ParseLog) { l.Fallbacks = append(l.Fallbacks, f) })
}

func (b *Builder) SetZone(z ZoneInfo) *Builder {
	return b.edit(func(l *ParseLog) { l.Zones = append(l.Zones, z) })
}

func (b *Builder) MarkOCRUsed() *Builder {
	return b.edit(func(l *ParseLog) { l.OCRUsed = true })
}

func (b *Builder) AddFilteredImage(img internal.FilteredImage) *Builder {
	return b.edit(func(l *ParseLog) { l.FilteredImages = append(l.FilteredImages, img) })
}

func (b *Builder) AddProcessedImage(name string) *Builder {
	return b.edit(func(l *ParseLog) { l.ProcessedImages = append(l.ProcessedImages, name) })
}

func (b *Builder) SetExtractedLines(n int) *Builder {
	return b.edit(func(l *ParseLog) { l.ExtractedLines = n })
}

func (b *Builder) SetItemCount(n int) *Builder {
	return b.edit(func(l *ParseLog) { l.ItemCount = n })
}

func (b *Builder) AddWarning(msg string) *Builder {
	return b.edit(func(l *ParseLog) { l.Warnings = append(l.Warnings, msg) })
}

func (b *Builder) AddError(msg string) *Builder {
	return b.edit(func(l *ParseLog) { l.Errors = append(l.Errors, msg) })
}

func (b *Builder) AddPath(path string) *Builder {
	return b.edit(func(l *ParseLog) { l.Paths = append(l.Paths, path) })
}

func (b *Builder) SetMethod(m string) *Builder {
	return b.edit(func(l *ParseLog) { l.Method = m })
}

func (b *Builder) SetContinuations(n int) *Builder {
	return b.edit(func(l *ParseLog) { l.Continuations = n })
}

func (b *Builder) SetConfidence(s ConfidenceStats) *Builder {
	return b.edit(func(l *ParseLog) { l.Confidence = &s })
}

func (b *Builder) SetClassification(c Classification) *Builder {
	c.Reasons = slices.Clone(c.Reasons)
	return b.edit(func(l *ParseLog) { l.Classification = &c })
}

func (b *Builder) SetReference(ref string) *Builder {
	return b.edit(func(l *ParseLog) { l.ReferenceNumber = ref })
}

func (b *Builder) SetNeedsVerification(v bool) *Builder {
	return b.edit(func(l *ParseLog) { l.NeedsVerification = v })
}

// Build freezes the builder and returns a deep copy of the log.
func (b *Builder) Build() ParseLog {
	if !b.frozen {
		b.log.DurationMs = b.now().Sub(b.log.StartedAt).Milliseconds()
		b.frozen = true
	}
	return b.log.clone()
}

func (l ParseLog) clone() ParseLog {
	out := l
	out.Sources = slices.Clone(l.Sources)
	out.InputTypes = slices.Clone(l.InputTypes)
	out.Fallbacks = slices.Clone(l.Fallbacks)
	out.Zones = slices.Clone(l.Zones)
	out.ProcessedImages = slices.Clone(l.ProcessedImages)
	out.Paths = slices.Clone(l.Paths)
	out.Warnings = slices.Clone(l.Warnings)
	out.Errors = slices.Clone(l.Errors)
	out.FilteredImages = slices.Clone(l.FilteredImages)
	if l.Headers != nil {
		out.Headers = make([]HeaderInfo, len(l.Headers))
		for i, h := range l.Headers {
			h.Columns = slices.Clone(h.Columns)
			out.Headers[i] = h
		}
	}
	if l.Confidence != nil {
		c := *l.Confidence
		out.Confidence = &c
	}
	if l.Classification != nil {
		c := *l.Classification
		c.Reasons = slices.Clone(c.Reasons)
		out.Classification = &c
	}
	return out
}
