package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// Word reads a .docx package: top-level paragraphs become rows, w:tbl
// elements become tables. Legacy binary .doc files are not supported.
func Word(name string, data []byte) (internal.NormalizedDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return internal.NormalizedDocument{}, fmt.Errorf("open docx: %w", ErrUnsupported)
	}
	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return internal.NormalizedDocument{}, errors.New("word/document.xml not found in archive")
	}
	rc, err := docFile.Open()
	if err != nil {
		return internal.NormalizedDocument{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	w, err := walkDocx(xml.NewDecoder(rc))
	if err != nil {
		return internal.NormalizedDocument{}, err
	}
	text := strings.Join(w.lines, "\n")
	return internal.NormalizedDocument{
		Source:  internal.SourceWord,
		Name:    name,
		Tables:  w.tables,
		Rows:    RowsFromText(text),
		RawText: strings.TrimSpace(util.NormalizeText(text)),
	}, nil
}

type docxWalker struct {
	depth  int
	inText bool
	para   strings.Builder
	cell   strings.Builder
	row    []string
	table  internal.Table
	tables []internal.Table
	lines  []string
}

func walkDocx(dec *xml.Decoder) (*docxWalker, error) {
	w := &docxWalker{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return w, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			if w.inText {
				w.para.Write(t)
			}
		}
	}
}

func (w *docxWalker) start(name string) {
	switch name {
	case "tbl":
		w.depth++
		if w.depth == 1 {
			w.table = nil
		}
	case "tr":
		if w.depth == 1 {
			w.row = nil
		}
	case "tc":
		if w.depth == 1 {
			w.cell.Reset()
		}
	case "p":
		w.para.Reset()
	case "t":
		w.inText = true
	case "tab":
		w.para.WriteByte('\t')
	case "br", "cr":
		w.para.WriteByte('\n')
	}
}

func (w *docxWalker) end(name string) {
	switch name {
	case "t":
		w.inText = false
	case "p":
		text := w.para.String()
		if w.depth == 0 {
			w.lines = append(w.lines, strings.Split(text, "\n")...)
			return
		}
		if w.cell.Len() > 0 {
			w.cell.WriteByte(' ')
		}
		w.cell.WriteString(text)
	case "tc":
		if w.depth == 1 {
			w.row = append(w.row, util.CollapseSpaces(util.NormalizeText(w.cell.String())))
		}
	case "tr":
		if w.depth == 1 && strings.TrimSpace(strings.Join(w.row, "")) != "" {
			w.table = append(w.table, w.row)
			w.lines = append(w.lines, strings.Join(w.row, "\t"))
		}
	case "tbl":
		if w.depth == 1 && len(w.table) > 0 {
			w.tables = append(w.tables, w.table)
		}
		w.depth--
	}
}
