package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

const defaultPageHeight = 842.0

// PDF runs the reader chain: positioned glyphs, then raw content streams,
// then OCR. A stage only runs when the previous one produced fewer than
// MinTextChars characters. When both readers fail and OCR cannot recover
// any text, ErrUnreadable is returned.
func (e *Extractor) PDF(ctx context.Context, name string, data []byte) (Result, error) {
	res := Result{Kind: KindPDF}

	tokens, text, posErr := pdfPositions(data)
	if posErr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("pdf reader: %v", posErr))
	}
	if e.enough(text) {
		res.Method = "pdf-positions"
		res.Doc = internal.NormalizedDocument{
			Source:       internal.SourcePDF,
			Name:         name,
			HasPositions: len(tokens) > 0,
			Tokens:       tokens,
			Rows:         RowsFromText(text),
			RawText:      strings.TrimSpace(util.NormalizeText(text)),
		}
		return res, nil
	}

	streamText, streamErr := pdfStreamText(data)
	if streamErr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("pdf content streams: %v", streamErr))
	}
	broken := posErr != nil && streamErr != nil
	if e.enough(streamText) {
		res.Method = "pdf-content-stream"
		res.Doc = textDocument(internal.SourcePDF, name, streamText)
		return res, nil
	}

	if e.ocr == nil {
		if broken {
			return res, fmt.Errorf("%w: %v", ErrUnreadable, posErr)
		}
		res.Warnings = append(res.Warnings, "pdf has no text layer and OCR is not configured")
		res.Doc = textDocument(internal.SourcePDF, name, longest(text, streamText))
		return res, nil
	}
	ocrText, err := e.ocr.PDFText(ctx, data)
	if err != nil {
		e.logger.Warn("pdf ocr failed", "name", name, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("pdf ocr: %v", err))
		if broken && strings.TrimSpace(ocrText) == "" {
			return res, fmt.Errorf("%w: %v; ocr: %v", ErrUnreadable, posErr, err)
		}
	}
	res.OCRUsed = true
	res.Method = "pdf-ocr"
	res.Doc = textDocument(internal.SourcePDF, name, longest(ocrText, text, streamText))
	return res, nil
}

func (e *Extractor) enough(text string) bool {
	return len([]rune(strings.TrimSpace(text))) >= e.opts.MinTextChars
}

func textDocument(src internal.SourceType, name, text string) internal.NormalizedDocument {
	return internal.NormalizedDocument{
		Source:  src,
		Name:    name,
		Rows:    RowsFromText(text),
		RawText: strings.TrimSpace(util.NormalizeText(text)),
	}
}

func longest(texts ...string) string {
	best := ""
	for _, t := range texts {
		if len(strings.TrimSpace(t)) > len(strings.TrimSpace(best)) {
			best = t
		}
	}
	return best
}

// pdfPositions reads word tokens and plain text with ledongthuc/pdf. The
// reader panics on some malformed files; that is turned into an error.
func pdfPositions(data []byte) (tokens []internal.PositionToken, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		tokens = append(tokens, wordsFromGlyphs(p.Content().Text, i, pageHeight(p))...)
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	text = b.String()
	if strings.TrimSpace(text) == "" && len(tokens) > 0 {
		text = tokensText(tokens)
	}
	return tokens, text, nil
}

func pageHeight(p pdf.Page) float64 {
	box := p.V.Key("MediaBox")
	if box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}

// wordsFromGlyphs merges per-glyph text runs into words. PDF y grows
// upward; tokens are flipped so y grows downward.
func wordsFromGlyphs(glyphs []pdf.Text, page int, height float64) []internal.PositionToken {
	gs := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool {
		yi, yj := math.Round(gs[i].Y), math.Round(gs[j].Y)
		if yi != yj {
			return yi > yj
		}
		return gs[i].X < gs[j].X
	})

	var out []internal.PositionToken
	var cur *internal.PositionToken
	var curY, curEnd float64
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			cur.Text = strings.TrimSpace(cur.Text)
			out = append(out, *cur)
		}
		cur = nil
	}
	for _, g := range gs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		size := math.Max(g.FontSize, 1)
		sameLine := cur != nil && math.Abs(math.Round(g.Y)-curY) < 1
		if sameLine && g.X-curEnd <= size*0.25 {
			cur.Text += g.S
			curEnd = g.X + g.W
			cur.Width = curEnd - cur.X
			continue
		}
		flush()
		cur = &internal.PositionToken{
			Text:   g.S,
			X:      g.X,
			Y:      height - g.Y - size,
			Width:  g.W,
			Height: size,
			Page:   page,
		}
		curY = math.Round(g.Y)
		curEnd = g.X + g.W
	}
	flush()
	return out
}

func tokensText(tokens []internal.PositionToken) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			if prev.Page != t.Page || math.Abs(prev.Y-t.Y) >= 1 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// pdfStreamText decodes text-showing operators from raw page content
// streams with pdfcpu. It copes with files the glyph reader rejects.
func pdfStreamText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}
	var b strings.Builder
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil || len(content) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(contentStreamText(content))
	}
	return b.String(), nil
}

var (
	reStreamOp   = regexp.MustCompile(`\((?:\\.|[^\\)])*\)\s*(?:Tj|'|")|\[[^\]]*\]\s*TJ|(-?\d*\.?\d+)\s+(-?\d*\.?\d+)\s+T[dD]|T\*|\bET\b`)
	reStreamPart = regexp.MustCompile(`\((?:\\.|[^\\)])*\)|-?\d*\.?\d+`)
)

// contentStreamText turns Tj/TJ operators into text. Vertical moves and
// text object ends start a new line.
func contentStreamText(content []byte) string {
	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	for _, m := range reStreamOp.FindAllSubmatch(content, -1) {
		op := m[0]
		switch {
		case op[0] == '(':
			end := bytes.LastIndexByte(op, ')')
			if op[len(op)-1] == '\'' || op[len(op)-1] == '"' {
				newline()
			}
			b.WriteString(decodePDFString(op[1:end]))
		case op[0] == '[':
			for _, part := range reStreamPart.FindAll(op[1:bytes.LastIndexByte(op, ']')], -1) {
				if part[0] == '(' {
					b.WriteString(decodePDFString(part[1 : len(part)-1]))
					continue
				}
				if kern, err := strconv.ParseFloat(string(part), 64); err == nil && kern <= -250 {
					b.WriteByte(' ')
				}
			}
		case len(m[2]) > 0:
			if dy, err := strconv.ParseFloat(string(m[2]), 64); err == nil && dy != 0 {
				newline()
			} else if b.Len() > 0 {
				b.WriteByte(' ')
			}
		default:
			newline()
		}
	}
	return b.String()
}

func decodePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n', 'r':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(string(raw[i:j]), 8, 8)
			b.WriteByte(byte(v))
			i = j - 1
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
