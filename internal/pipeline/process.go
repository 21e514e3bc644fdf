package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"rfqingest/internal"
	"rfqingest/internal/brands"
	"rfqingest/internal/columns"
	"rfqingest/internal/config"
	"rfqingest/internal/connectors"
	"rfqingest/internal/extract"
	"rfqingest/internal/imagefilter"
	"rfqingest/internal/mailmsg"
	"rfqingest/internal/ocr"
	"rfqingest/internal/storage"
)

const (
	StatusFetched     = connectors.StatusFetched
	StatusProcessed   = "processed"
	StatusNeedsReview = "needs_review"
	StatusSkipped     = "skipped"
	StatusFailed      = "failed"
)

func ParserOptions(cfg config.Config) Options {
	return Options{
		HeaderMinScore:     cfg.HeaderMinScore,
		HeaderStrongScore:  cfg.HeaderStrongScore,
		MaxSearchLines:     cfg.MaxSearchLines,
		YTolerance:         cfg.YTolerance,
		MinItems:           cfg.MinItemsBeforeFallback,
		ContinuationMaxLen: cfg.ContinuationMaxLen,
		MergeNumberedItems: cfg.MergeNumberedItems,
		LowConfidence:      cfg.LowConfidence,
		MaxLowRatio:        cfg.MaxLowRatio,
	}
}

// NewIngestorFromConfig wires the column vocabulary, OCR, image filter and
// brand store described by cfg. A brand file that fails to load is logged
// and the built-in list is used.
func NewIngestorFromConfig(cfg config.Config, logger *slog.Logger) (*Ingestor, *brands.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dict := columns.Default()
	if cfg.VocabularyPath != "" {
		if err := dict.Extend(cfg.VocabularyPath); err != nil {
			return nil, nil, err
		}
	}
	parser := NewParser(columns.NewMatcher(dict, cfg.FuzzyThreshold), ParserOptions(cfg), logger)

	var engine extract.OCR
	if cfg.OCREnabled {
		engine = ocr.NewEngine(cfg.OCR(), logger)
	}
	extractor := extract.New(engine, extract.Options{MinTextChars: cfg.MinTextChars}, logger)

	store, err := brands.NewStore(cfg.BrandsPath, cfg.BrandsCheckInterval, logger)
	if err != nil {
		logger.Warn("brand list not loaded, using built-in list", "path", cfg.BrandsPath, "error", err)
	}
	images := imagefilter.New(cfg.ImageFilter(), logger)
	return NewIngestor(parser, extractor, images, WithBrands(store), WithLogger(logger)), store, nil
}

type ProcessingService struct {
	db       *storage.DB
	ingestor *Ingestor
	logger   *slog.Logger
}

func NewProcessingService(db *storage.DB, ingestor *Ingestor, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	if ingestor == nil {
		ingestor = NewIngestor(nil, nil, nil, WithLogger(logger))
	}
	return &ProcessingService{db: db, ingestor: ingestor, logger: logger}
}

type ProcessResult struct {
	EmailID           int
	RequestID         string
	Items             int
	Status            string
	ReferenceNumber   string
	NeedsVerification bool
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending ingests up to limit fetched emails. An email that cannot
// be read is marked failed and the batch goes on; storage errors stop it.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus(StatusFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedItems := 0
	for _, email := range pending {
		if err := ctx.Err(); err != nil {
			return processedEmails, processedItems, err
		}
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			s.logger.Error("email processing failed", "email_id", email.ID, "message_id", email.MessageID, "error", err)
			if err := s.db.UpdateEmailStatus(email.ID, StatusFailed); err != nil {
				return processedEmails, processedItems, err
			}
			continue
		}
		processedEmails++
		processedItems += res.Items
	}
	return processedEmails, processedItems, nil
}

func (s *ProcessingService) ProcessEmail(ctx context.Context, row internal.EmailRow) (ProcessResult, error) {
	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("read raw message: %w", err)
	}
	email, err := mailmsg.Parse(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	if email.Subject == "" {
		email.Subject = row.Subject
	}

	res := s.ingestor.IngestEmail(ctx, email)
	status := statusFor(res)

	if err := s.db.ReplaceItems(row.ID, res.RequestID, res.Items); err != nil {
		return ProcessResult{}, fmt.Errorf("store items: %w", err)
	}
	if err := s.db.SaveParseLog(row.ID, res.Log); err != nil {
		return ProcessResult{}, fmt.Errorf("store parse log: %w", err)
	}
	if err := s.db.UpdateEmailStatus(row.ID, status); err != nil {
		return ProcessResult{}, err
	}

	s.logger.Info("email processed",
		"email_id", row.ID,
		"request_id", res.RequestID,
		"label", res.Classification.Label,
		"items", len(res.Items),
		"status", status,
	)
	return ProcessResult{
		EmailID:           row.ID,
		RequestID:         res.RequestID,
		Items:             len(res.Items),
		Status:            status,
		ReferenceNumber:   res.ReferenceNumber,
		NeedsVerification: res.NeedsVerification,
	}, nil
}

// statusFor skips only emails that are clearly not requests and yielded
// nothing; everything else stays visible.
func statusFor(res Result) string {
	switch {
	case len(res.Items) == 0 && res.Classification.Label != LabelRequest && res.Classification.Label != LabelUnknown:
		return StatusSkipped
	case res.NeedsVerification:
		return StatusNeedsReview
	default:
		return StatusProcessed
	}
}
