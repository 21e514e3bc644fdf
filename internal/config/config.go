package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rfqingest/internal/imagefilter"
	"rfqingest/internal/ocr"
)

type Config struct {
	DBPath         string
	RawMailDir     string
	OutputDir      string
	BrandsPath     string
	VocabularyPath string

	FuzzyThreshold         float64
	HeaderMinScore         float64
	HeaderStrongScore      float64
	MaxSearchLines         int
	YTolerance             float64
	MinItemsBeforeFallback int
	ContinuationMaxLen     int
	MergeNumberedItems     bool
	MinTextChars           int
	LowConfidence          float64
	MaxLowRatio            float64
	BrandsCheckInterval    time.Duration

	ImageIconMaxSide    int
	ImageMinPixels      int
	ImageMaxAspectRatio float64
	ImageMinHeight      int
	ImageMinBytes       int
	ImageFooterMaxBytes int
	ImageMinOCRChars    int

	OCREnabled    bool
	PdftoppmPath  string
	TesseractPath string
	OCRLang       string
	OCRDPI        int
	OCRMaxPages   int
	OCRTimeout    time.Duration

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerInterval     time.Duration
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool
}

// Defaults returns the configuration used when no variable is set. Paths
// are relative to the working directory.
func Defaults() Config {
	return Config{
		DBPath:     filepath.Join("data", "app.db"),
		RawMailDir: filepath.Join("data", "raw"),
		OutputDir:  "out",

		FuzzyThreshold:         0.75,
		HeaderMinScore:         8,
		HeaderStrongScore:      15,
		MaxSearchLines:         50,
		YTolerance:             5,
		MinItemsBeforeFallback: 3,
		ContinuationMaxLen:     100,
		MinTextChars:           50,
		LowConfidence:          0.6,
		MaxLowRatio:            0.3,
		BrandsCheckInterval:    30 * time.Second,

		ImageIconMaxSide:    64,
		ImageMinPixels:      40000,
		ImageMaxAspectRatio: 3.5,
		ImageMinHeight:      120,
		ImageMinBytes:       5 * 1024,
		ImageFooterMaxBytes: 50 * 1024,
		ImageMinOCRChars:    20,

		OCREnabled:    true,
		PdftoppmPath:  "pdftoppm",
		TesseractPath: "tesseract",
		OCRLang:       "eng+fra",
		OCRDPI:        300,
		OCRTimeout:    30 * time.Second,

		GmailRedirectURI: "https://developers.google.com/oauthplayground",

		IMAPPort:   993,
		IMAPSecure: true,

		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerInterval:     30 * time.Second,
		MailListenerFetchMax:     20,
		MailListenerProcessBatch: 20,
		MailListenerAutoExport:   true,
	}
}

// Load reads .env when present, then the environment, on top of Defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	d := Defaults()

	cfg := Config{
		DBPath:         getEnv("DB_PATH", filepath.Join(cwd, d.DBPath)),
		RawMailDir:     getEnv("MAIL_RAW_DIR", filepath.Join(cwd, d.RawMailDir)),
		OutputDir:      getEnv("OUTPUT_DIR", filepath.Join(cwd, d.OutputDir)),
		BrandsPath:     getEnv("BRANDS_PATH", ""),
		VocabularyPath: getEnv("COLUMN_VOCABULARY_PATH", ""),

		FuzzyThreshold:         getEnvFloat("FUZZY_THRESHOLD", d.FuzzyThreshold),
		HeaderMinScore:         getEnvFloat("HEADER_MIN_SCORE", d.HeaderMinScore),
		HeaderStrongScore:      getEnvFloat("HEADER_STRONG_SCORE", d.HeaderStrongScore),
		MaxSearchLines:         getEnvInt("HEADER_MAX_SEARCH_LINES", d.MaxSearchLines),
		YTolerance:             getEnvFloat("PDF_Y_TOLERANCE", d.YTolerance),
		MinItemsBeforeFallback: getEnvInt("MIN_ITEMS_BEFORE_FALLBACK", d.MinItemsBeforeFallback),
		ContinuationMaxLen:     getEnvInt("CONTINUATION_MAX_LEN", d.ContinuationMaxLen),
		MergeNumberedItems:     getEnvBool("CONTINUATION_MERGE_NUMBERED", d.MergeNumberedItems),
		MinTextChars:           getEnvInt("PDF_MIN_TEXT_CHARS", d.MinTextChars),
		LowConfidence:          getEnvFloat("LOW_CONFIDENCE", d.LowConfidence),
		MaxLowRatio:            getEnvFloat("MAX_LOW_CONFIDENCE_RATIO", d.MaxLowRatio),
		BrandsCheckInterval:    getEnvDuration("BRANDS_CHECK_INTERVAL", d.BrandsCheckInterval),

		ImageIconMaxSide:    getEnvInt("IMAGE_ICON_MAX_SIDE", d.ImageIconMaxSide),
		ImageMinPixels:      getEnvInt("IMAGE_MIN_PIXELS", d.ImageMinPixels),
		ImageMaxAspectRatio: getEnvFloat("IMAGE_MAX_ASPECT_RATIO", d.ImageMaxAspectRatio),
		ImageMinHeight:      getEnvInt("IMAGE_MIN_HEIGHT", d.ImageMinHeight),
		ImageMinBytes:       getEnvInt("IMAGE_MIN_BYTES", d.ImageMinBytes),
		ImageFooterMaxBytes: getEnvInt("IMAGE_FOOTER_MAX_BYTES", d.ImageFooterMaxBytes),
		ImageMinOCRChars:    getEnvInt("IMAGE_MIN_OCR_CHARS", d.ImageMinOCRChars),

		OCREnabled:    getEnvBool("OCR_ENABLED", d.OCREnabled),
		PdftoppmPath:  getEnv("PDFTOPPM_PATH", d.PdftoppmPath),
		TesseractPath: getEnv("TESSERACT_PATH", d.TesseractPath),
		OCRLang:       getEnv("OCR_LANG", d.OCRLang),
		OCRDPI:        getEnvInt("OCR_DPI", d.OCRDPI),
		OCRMaxPages:   getEnvInt("OCR_MAX_PAGES", d.OCRMaxPages),
		OCRTimeout:    getEnvDuration("OCR_TIMEOUT", d.OCRTimeout),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", d.GmailRedirectURI),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", d.IMAPPort),
		IMAPSecure:   getEnvBool("IMAP_SECURE", d.IMAPSecure),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", d.MailListenerProvider),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", d.MailListenerLabel),
		MailListenerInterval:     getEnvDuration("MAIL_LISTENER_INTERVAL", d.MailListenerInterval),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", d.MailListenerFetchMax),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", d.MailListenerProcessBatch),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", d.MailListenerAutoExport),
	}

	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		return Config{}, fmt.Errorf("FUZZY_THRESHOLD must be in (0, 1], got %v", cfg.FuzzyThreshold)
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) ImageFilter() imagefilter.Config {
	return imagefilter.Config{
		IconMaxSide:    c.ImageIconMaxSide,
		MinPixels:      c.ImageMinPixels,
		MaxAspectRatio: c.ImageMaxAspectRatio,
		MinHeight:      c.ImageMinHeight,
		MinBytes:       c.ImageMinBytes,
		FooterMaxBytes: c.ImageFooterMaxBytes,
		MinOCRChars:    c.ImageMinOCRChars,
	}
}

func (c Config) OCR() ocr.Config {
	return ocr.Config{
		Pdftoppm:  c.PdftoppmPath,
		Tesseract: c.TesseractPath,
		Lang:      c.OCRLang,
		DPI:       c.OCRDPI,
		MaxPages:  c.OCRMaxPages,
		Timeout:   c.OCRTimeout,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
