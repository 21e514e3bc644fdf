package imagefilter

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"rfqingest/internal"
)

type Config struct {
	IconMaxSide    int
	MinPixels      int
	MaxAspectRatio float64
	MinHeight      int
	MinBytes       int
	FooterMaxBytes int
	// MinOCRChars is the amount of alphanumeric OCR text below which an
	// image is treated as carrying no document content.
	MinOCRChars int
}

func DefaultConfig() Config {
	return Config{
		IconMaxSide:    64,
		MinPixels:      40000,
		MaxAspectRatio: 3.5,
		MinHeight:      120,
		MinBytes:       5 * 1024,
		FooterMaxBytes: 50 * 1024,
		MinOCRChars:    20,
	}
}

// ImageInfo is everything the filter looks at for one image.
type ImageInfo struct {
	Filename  string
	Data      []byte
	Size      int
	Inline    bool
	Position  internal.ImagePosition
	ContentID string
	Context   string
}

func InfoFromAttachment(a internal.Attachment) ImageInfo {
	return ImageInfo{
		Filename:  a.Filename,
		Data:      a.Content,
		Size:      a.Size,
		Inline:    a.Inline,
		Position:  a.Position,
		ContentID: a.ContentID,
		Context:   a.Context,
	}
}

type Decision struct {
	Filtered   bool
	Reason     internal.FilterReason
	Confidence float64
	Width      int
	Height     int
	Detail     string
}

// Record converts a filtering decision into the parse log entry.
func (d Decision) Record(info ImageInfo) internal.FilteredImage {
	out := internal.FilteredImage{Name: info.Filename, Reason: d.Reason}
	if d.Width > 0 || d.Height > 0 {
		w, h := d.Width, d.Height
		out.Width, out.Height = &w, &h
	}
	size := info.byteSize()
	out.Size = &size
	return out
}

type Filter struct {
	cfg    Config
	logger *slog.Logger
	decode func(io.Reader) (image.Config, string, error)
}

func New(cfg Config, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{cfg: cfg, logger: logger, decode: image.DecodeConfig}
}

// Classify decides whether an image is noise. The first decisive rule wins.
// A failure inside classification accepts the image with confidence 0.5.
func (f *Filter) Classify(info ImageInfo) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("image classification failed", "file", info.Filename, "panic", r)
			d = Decision{Confidence: 0.5, Detail: fmt.Sprint(r)}
		}
	}()
	return f.classify(info)
}

func (f *Filter) classify(info ImageInfo) Decision {
	name := strings.TrimSpace(filepath.Base(info.Filename))
	for _, p := range namePatterns {
		if name != "" && name != "." && p.re.MatchString(name) {
			return Decision{Filtered: true, Reason: p.reason, Confidence: 0.9, Detail: "filename"}
		}
	}

	var w, h int
	if len(info.Data) > 0 {
		if cfg, _, err := f.decode(bytes.NewReader(info.Data)); err == nil {
			w, h = cfg.Width, cfg.Height
		}
	}
	if w > 0 && h > 0 {
		reject := func(reason internal.FilterReason, conf float64) Decision {
			return Decision{Filtered: true, Reason: reason, Confidence: conf, Width: w, Height: h, Detail: "dimensions"}
		}
		switch {
		case w <= 2 && h <= 2:
			return reject(internal.ReasonTrackingPixel, 1.0)
		case w <= f.cfg.IconMaxSide && h <= f.cfg.IconMaxSide:
			return reject(internal.ReasonTinyIcon, 0.95)
		case w*h < f.cfg.MinPixels:
			return reject(internal.ReasonLikelySignature, 0.8)
		case float64(w)/float64(h) > f.cfg.MaxAspectRatio && h < f.cfg.MinHeight:
			return reject(internal.ReasonAspectRatio, 0.75)
		}
	}

	size := info.byteSize()
	if size > 0 && size < f.cfg.MinBytes {
		return Decision{Filtered: true, Reason: internal.ReasonLikelySignature, Confidence: 0.7, Width: w, Height: h, Detail: "size"}
	}

	if info.Position == internal.PositionFooter && size < f.cfg.FooterMaxBytes {
		conf := 0.5 + 0.4*(1-float64(size)/float64(f.cfg.FooterMaxBytes))
		return Decision{Filtered: true, Reason: internal.ReasonFooterPosition, Confidence: conf, Width: w, Height: h, Detail: "footer"}
	}

	if info.Context != "" {
		hits := 0
		for _, re := range signaturePhrases {
			if re.MatchString(info.Context) {
				hits++
			}
		}
		switch {
		case hits >= 2:
			return Decision{Filtered: true, Reason: internal.ReasonLikelySignature, Confidence: 0.85, Width: w, Height: h, Detail: "context"}
		case hits == 1:
			return Decision{Filtered: true, Reason: internal.ReasonLikelySignature, Confidence: 0.6, Width: w, Height: h, Detail: "context"}
		}
	}

	if cid := cidLocalPart(info.ContentID); cid != "" && cidHexRe.MatchString(cid) {
		return Decision{Filtered: true, Reason: internal.ReasonCIDPattern, Confidence: 0.6, Width: w, Height: h, Detail: "content-id"}
	}

	return Decision{Confidence: 1.0, Width: w, Height: h}
}

// LowOCRValue reports whether OCR text of an accepted image is too thin to
// be document content.
func (f *Filter) LowOCRValue(text string) bool {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n < f.cfg.MinOCRChars
}

func (i ImageInfo) byteSize() int {
	if i.Size > 0 {
		return i.Size
	}
	return len(i.Data)
}

func cidLocalPart(cid string) string {
	cid = strings.Trim(strings.TrimSpace(cid), "<>")
	if at := strings.IndexByte(cid, '@'); at >= 0 {
		cid = cid[:at]
	}
	return cid
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".webp": true, ".tif": true, ".tiff": true,
}

func IsImage(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return true
	}
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}
