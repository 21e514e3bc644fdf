package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	pdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rfqingest/internal"
)

type stubOCR struct {
	text string
	err  error
}

func (s stubOCR) ImageText(context.Context, string, []byte) (string, error) { return s.text, s.err }
func (s stubOCR) PDFText(context.Context, []byte) (string, error)           { return s.text, s.err }

func TestSplitCells(t *testing.T) {
	require.Equal(t, []string{"1", "10", "EA", "First item"}, SplitCells("1\t10\tEA\tFirst item"))
	require.Equal(t, []string{"Line", "Qty", "Description"}, SplitCells("| Line | Qty | Description |"))
	require.Equal(t, []string{"Bolt M8", "20", "pcs"}, SplitCells("Bolt M8    20   pcs"))
	require.Equal(t, []string{"Line Qty UOM Description"}, SplitCells("Line Qty UOM Description"))
}

func TestRowsFromText(t *testing.T) {
	rows := RowsFromText("Header\r\n\r\n1  10  EA  First item\n   continued text\n")
	require.Len(t, rows, 3)
	require.Equal(t, 1, rows[0].LineNumber)
	require.Equal(t, 3, rows[1].LineNumber)
	require.Equal(t, []string{"1", "10", "EA", "First item"}, rows[1].Cells)
	require.Equal(t, "1 10 EA First item", rows[1].Raw)
	require.True(t, rows[2].Continuation)
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name, ct string
		data     []byte
		want     Kind
	}{
		{"quote.PDF", "", nil, KindPDF},
		{"rfq.xlsx", "", nil, KindExcel},
		{"blob", "application/pdf; name=x", nil, KindPDF},
		{"blob", "image/png", nil, KindImage},
		{"blob", "application/octet-stream", []byte("%PDF-1.7\n"), KindPDF},
		{"blob", "", []byte("\x89PNG\r\n\x1a\n0000"), KindImage},
		{"blob", "", []byte("<html><body>hi</body></html>"), KindHTML},
		{"blob", "", []byte{0x00, 0x01, 0x02, 0x03}, KindUnknown},
		{"forward.eml", "", nil, KindEmail},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetectKind(tc.name, tc.ct, tc.data), tc.name+" "+tc.ct)
	}
}

func TestEmailText(t *testing.T) {
	doc := EmailText("", "Hello,\r\n> Line Qty UOM Description\n> 1 10 EA First item\n")
	require.Equal(t, internal.SourceEmailText, doc.Source)
	require.Equal(t, internal.ContentRows, doc.Content())
	require.Equal(t, "Line Qty UOM Description", doc.Rows[1].Raw)
}

func TestEmailHTMLTables(t *testing.T) {
	html := `<html><head><style>td{color:red}</style><script>alert(1)</script></head><body>
<p>Please quote the following:</p>
<table><tr><td>
  <table>
    <tr><th>Qty</th><th>Description</th></tr>
    <tr><td>4</td><td>Hydraulic  filter</td></tr>
  </table>
</td></tr></table>
<p>Best regards</p></body></html>`
	doc, err := EmailHTML("body.html", html)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Equal(t, internal.Table{{"Qty", "Description"}, {"4", "Hydraulic filter"}}, doc.Tables[0])
	require.Contains(t, doc.RawText, "Please quote the following:")
	require.NotContains(t, doc.RawText, "alert")
	require.Equal(t, internal.ContentTables, doc.Content())
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWordTablesAndParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>Request for quotation RFQ-2024-118</w:t></w:r></w:p>
<w:tbl>
 <w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Designation</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Qte</w:t></w:r></w:p></w:tc></w:tr>
 <w:tr><w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Roulement</w:t></w:r></w:p><w:p><w:r><w:t>6204 2RS</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>12</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Merci</w:t></w:r><w:r><w:tab/><w:t>A bientot</w:t></w:r></w:p>`
	doc, err := Word("rfq.docx", docxBytes(t, body))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Equal(t, []string{"1", "Roulement 6204 2RS", "12"}, doc.Tables[0][1])
	require.Equal(t, "Request for quotation RFQ-2024-118", doc.Rows[0].Raw)
	require.Equal(t, []string{"Merci", "A bientot"}, doc.Rows[len(doc.Rows)-1].Cells)
}

func TestWordRejectsLegacyDoc(t *testing.T) {
	_, err := Word("old.doc", []byte{0xd0, 0xcf, 0x11, 0xe0})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestExcelKeepsEmptyCells(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Line", "Description", "Qty", "Unit"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, "Pressure gauge", 2, ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{2, "", 5, "EA"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	doc, err := Excel("rfq.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	tbl := doc.Tables[0]
	require.Len(t, tbl, 3)
	require.Equal(t, []string{"2", "", "5", "EA"}, tbl[2])
	require.Equal(t, internal.SourceExcel, doc.Source)
}

func TestCSVSemicolon(t *testing.T) {
	doc, err := CSV("rfq.csv", []byte("Ref;Désignation;Qté\nA-1;Vanne 1/2\";3\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"A-1", "Vanne 1/2\"", "3"}, doc.Tables[0][1])
}

func TestContentStreamText(t *testing.T) {
	stream := []byte("BT /F1 10 Tf 50 700 Td (Line Qty UOM Description) Tj 0 -14 Td [(1 10 EA Fir) 20 (st) -400 (item)] TJ ET\nBT 50 600 Td (page \\(1\\)) Tj ET")
	require.Equal(t, "Line Qty UOM Description\n1 10 EA First item\npage (1)\n", contentStreamText(stream))
}

func TestWordsFromGlyphs(t *testing.T) {
	glyphs := []pdf.Text{
		{S: "Q", X: 10, Y: 700, W: 6, FontSize: 10},
		{S: "t", X: 16, Y: 700, W: 3, FontSize: 10},
		{S: "y", X: 19, Y: 700, W: 5, FontSize: 10},
		{S: " ", X: 24, Y: 700, W: 3, FontSize: 10},
		{S: "10", X: 60, Y: 700.2, W: 10, FontSize: 10},
		{S: "A", X: 10, Y: 686, W: 6, FontSize: 10},
	}
	toks := wordsFromGlyphs(glyphs, 1, 842)
	require.Len(t, toks, 3)
	require.Equal(t, "Qty", toks[0].Text)
	require.InDelta(t, 14, toks[0].Width, 1e-9)
	require.Equal(t, "10", toks[1].Text)
	require.Equal(t, "A", toks[2].Text)
	require.Greater(t, toks[2].Y, toks[0].Y)
}

func TestPDFFallsBackToOCR(t *testing.T) {
	e := New(stubOCR{text: "Line Qty UOM Description\n1 10 EA First item"}, Options{}, nil)
	res, err := e.Extract(context.Background(), "scan.pdf", "application/pdf", []byte("%PDF-1.4 broken"))
	require.NoError(t, err)
	require.True(t, res.OCRUsed)
	require.Equal(t, "pdf-ocr", res.Method)
	require.NotEmpty(t, res.Warnings)
	require.Len(t, res.Doc.Rows, 2)
}

func TestBrokenPDFWithFailedOCRIsUnreadable(t *testing.T) {
	e := New(stubOCR{err: errors.New("tesseract missing")}, Options{}, nil)
	_, err := e.Extract(context.Background(), "scan.pdf", "", []byte("%PDF-1.4 broken"))
	require.ErrorIs(t, err, ErrUnreadable)
	require.NotErrorIs(t, err, ErrEmptyDocument)
	require.Contains(t, err.Error(), "tesseract missing")
}

func TestBrokenPDFWithoutOCRIsUnreadable(t *testing.T) {
	e := New(nil, Options{}, nil)
	res, err := e.Extract(context.Background(), "order.pdf", "application/pdf", []byte("%PDF-1.4 broken"))
	require.ErrorIs(t, err, ErrUnreadable)
	require.Contains(t, err.Error(), "order.pdf")
	require.False(t, res.OCRUsed)
	require.Len(t, res.Warnings, 2)
}

func TestUnsupported(t *testing.T) {
	e := New(nil, Options{}, nil)
	_, err := e.Extract(context.Background(), "archive.7z", "application/x-7z-compressed", []byte{0x37, 0x7a, 0xbc, 0xaf})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestImageUsesOCR(t *testing.T) {
	e := New(stubOCR{text: "2 x safety gloves"}, Options{}, nil)
	res, err := e.Extract(context.Background(), "photo.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	require.True(t, res.OCRUsed)
	require.Equal(t, internal.SourceImage, res.Doc.Source)
}
