package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; "pdftoppm" when empty
	Tesseract string // binary name or absolute path; "tesseract" when empty

	Lang     string // tesseract languages, default "eng+fra"
	DPI      int    // rasterization DPI, default 300
	MaxPages int    // 0 = no limit
	PSM      int

	// Timeout bounds every external call.
	Timeout time.Duration
}

// Engine shells out to pdftoppm and tesseract. Failures and timeouts
// come back as errors with empty text; callers treat them as "no text".
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng+fra"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	return e
}

var reBoxNoise = regexp.MustCompile(`[|]{2,}|[_]{4,}`)

// ImageText runs tesseract over an image buffer.
func (e *Engine) ImageText(ctx context.Context, name string, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "rfq-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".png"
	}
	path := filepath.Join(dir, "image"+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return e.tesseract(ctx, path)
}

// PDFText rasterizes a PDF and OCRs each page. Pages are separated by a
// blank line.
func (e *Engine) PDFText(ctx context.Context, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "rfq-pdf-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", err
	}
	prefix := filepath.Join(dir, "page")

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	_, errb, err := e.runner.Run(callCtx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	cancel()
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(pages)
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages")
	}

	var b strings.Builder
	for _, page := range pages {
		txt, err := e.tesseract(ctx, page)
		if err != nil {
			e.logger.Warn("page ocr failed", "page", filepath.Base(page), "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}
	return b.String(), nil
}

func (e *Engine) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	out, errb, err := e.runner.Run(callCtx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), " "), nil
}
