package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

// Excel reads every sheet into one table. Empty cells are kept so column
// indices stay aligned with the header; fully empty rows are dropped.
func Excel(name string, data []byte) (internal.NormalizedDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return internal.NormalizedDocument{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var tables []internal.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if t := normalizeTable(rows); len(t) > 0 {
			tables = append(tables, t)
		}
	}
	return internal.NormalizedDocument{
		Source:  internal.SourceExcel,
		Name:    name,
		Tables:  tables,
		RawText: strings.TrimSpace(TableText(tables)),
	}, nil
}

// CSV reads comma or semicolon separated exports as a single table.
func CSV(name string, data []byte) (internal.NormalizedDocument, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = csvDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return internal.NormalizedDocument{}, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	var tables []internal.Table
	if t := normalizeTable(rows); len(t) > 0 {
		tables = append(tables, t)
	}
	return internal.NormalizedDocument{
		Source:  internal.SourceExcel,
		Name:    name,
		Tables:  tables,
		RawText: strings.TrimSpace(TableText(tables)),
	}, nil
}

func csvDelimiter(data []byte) rune {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func normalizeTable(rows [][]string) internal.Table {
	var t internal.Table
	for _, row := range rows {
		cells := make([]string, len(row))
		empty := true
		for i, c := range row {
			cells[i] = util.CollapseSpaces(util.NormalizeText(c))
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			t = append(t, cells)
		}
	}
	return t
}
