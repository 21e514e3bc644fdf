package extract

import (
	"context"
	"fmt"

	"rfqingest/internal"
)

// Image OCRs a scanned image. The caller is expected to have run the
// image filter first.
func (e *Extractor) Image(ctx context.Context, name string, data []byte) (Result, error) {
	res := Result{Kind: KindImage, Method: "image-ocr"}
	if e.ocr == nil {
		return res, fmt.Errorf("image %s: OCR is not configured", name)
	}
	text, err := e.ocr.ImageText(ctx, name, data)
	res.OCRUsed = true
	if err != nil {
		e.logger.Warn("image ocr failed", "name", name, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("image ocr: %v", err))
	}
	res.Doc = textDocument(internal.SourceImage, name, text)
	return res, nil
}
