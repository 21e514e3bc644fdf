package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rfqingest/internal"
)

var (
	ErrUnsupported   = errors.New("unsupported document type")
	ErrEmptyDocument = errors.New("document has no extractable content")
	ErrUnreadable    = errors.New("document could not be read")
)

// OCR is the external text recognizer used for scans and image-only PDFs.
type OCR interface {
	ImageText(ctx context.Context, name string, data []byte) (string, error)
	PDFText(ctx context.Context, data []byte) (string, error)
}

type Options struct {
	// MinTextChars is the amount of text a PDF reader must produce before
	// the next reader in the chain is skipped.
	MinTextChars int
}

type Result struct {
	Doc      internal.NormalizedDocument
	Kind     Kind
	Method   string
	OCRUsed  bool
	Warnings []string
}

type Extractor struct {
	ocr    OCR
	opts   Options
	logger *slog.Logger
}

func New(ocr OCR, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 50
	}
	return &Extractor{ocr: ocr, opts: opts, logger: logger}
}

// Extract routes an attachment to the matching reader and returns its
// normalized form. ErrEmptyDocument is returned when the reader succeeded
// but produced nothing.
func (e *Extractor) Extract(ctx context.Context, name, contentType string, data []byte) (Result, error) {
	kind := DetectKind(name, contentType, data)
	res := Result{Kind: kind}

	var (
		doc internal.NormalizedDocument
		err error
	)
	switch kind {
	case KindPDF:
		res, err = e.PDF(ctx, name, data)
		res.Kind = kind
		doc = res.Doc
	case KindImage:
		res, err = e.Image(ctx, name, data)
		res.Kind = kind
		doc = res.Doc
	case KindExcel:
		doc, err = Excel(name, data)
		res.Method = "xlsx"
	case KindCSV:
		doc, err = CSV(name, data)
		res.Method = "csv"
	case KindWord:
		doc, err = Word(name, data)
		res.Method = "docx"
	case KindHTML:
		doc, err = EmailHTML(name, string(data))
		res.Method = "html"
	case KindText:
		doc = EmailText(name, string(data))
		res.Method = "text"
	default:
		return res, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	res.Doc = doc
	if doc.Empty() {
		return res, fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}
	e.logger.Debug("document extracted", "name", name, "kind", kind, "method", res.Method, "content", doc.Content())
	return res, nil
}
