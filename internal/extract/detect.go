package extract

import (
	"archive/zip"
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF     Kind = "pdf"
	KindExcel   Kind = "excel"
	KindCSV     Kind = "csv"
	KindWord    Kind = "word"
	KindImage   Kind = "image"
	KindHTML    Kind = "html"
	KindText    Kind = "text"
	KindEmail   Kind = "email"
	KindUnknown Kind = "unknown"
)

var extKinds = map[string]Kind{
	".pdf":  KindPDF,
	".xlsx": KindExcel,
	".xlsm": KindExcel,
	".xls":  KindExcel,
	".csv":  KindCSV,
	".docx": KindWord,
	".doc":  KindWord,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".bmp":  KindImage,
	".webp": KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
	".htm":  KindHTML,
	".html": KindHTML,
	".txt":  KindText,
	".eml":  KindEmail,
}

var mimeKinds = map[string]Kind{
	"application/pdf":          KindPDF,
	"application/vnd.ms-excel": KindExcel,
	"application/msword":       KindWord,
	"text/csv":                 KindCSV,
	"text/html":                KindHTML,
	"text/plain":               KindText,
	"message/rfc822":           KindEmail,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       KindExcel,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindWord,
}

// DetectKind routes by extension, then declared MIME type, then content.
func DetectKind(filename, contentType string, data []byte) Kind {
	if k, ok := extKinds[strings.ToLower(filepath.Ext(filename))]; ok {
		return k
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if k, ok := mimeKinds[strings.ToLower(mt)]; ok {
			return k
		}
		if strings.HasPrefix(mt, "image/") {
			return KindImage
		}
	}
	return sniff(data)
}

func sniff(data []byte) Kind {
	switch {
	case len(data) == 0:
		return KindUnknown
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return sniffZip(data)
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return KindImage
	case len(data) > 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return KindImage
	case bytes.HasPrefix(data, []byte("BM")):
		return KindImage
	}
	ct := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "text/html"):
		return KindHTML
	case strings.HasPrefix(ct, "text/plain"):
		return KindText
	}
	return KindUnknown
}

func sniffZip(data []byte) Kind {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return KindUnknown
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return KindWord
		case strings.HasPrefix(f.Name, "xl/"):
			return KindExcel
		}
	}
	return KindUnknown
}
