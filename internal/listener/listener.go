package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"rfqingest/internal/config"
	"rfqingest/internal/connectors"
	gmailconnector "rfqingest/internal/connectors/gmail"
	imapconnector "rfqingest/internal/connectors/imap"
	"rfqingest/internal/pipeline"
	"rfqingest/internal/storage"
)

const (
	StatusExported = "exported"

	lastCycleKey = "listener.last_cycle"
	exportBatch  = 200
)

type Service struct {
	db        *storage.DB
	cfg       config.Config
	provider  string
	connector connectors.MailConnector
	processor *pipeline.ProcessingService
	logger    *slog.Logger
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Items     int
	Exported  int
}

func NewService(db *storage.DB, cfg config.Config, connector connectors.MailConnector, processor *pipeline.ProcessingService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		provider:  normalizeProvider(cfg.MailListenerProvider),
		connector: connector,
		processor: processor,
		logger:    logger,
	}
}

// NewConnector builds the mail connector named by provider.
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch normalizeProvider(provider) {
	case gmailconnector.Provider:
		return gmailconnector.NewConnector(ctx, cfg)
	case imapconnector.Provider:
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Run polls until ctx is done. A failed cycle is logged and retried on the
// next tick.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("listener started", "provider", s.provider, "label", s.cfg.MailListenerLabel, "interval", s.cfg.MailListenerInterval)
	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("listener stopped")
			return nil
		case <-time.After(s.cfg.MailListenerInterval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector, s.logger)
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.Stored = fetched.Fetched, fetched.Stored

	res.Processed, res.Items, err = s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, s.provider)
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport {
		if res.Exported, err = s.exportProcessed(); err != nil {
			return res, err
		}
	}

	if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}
	s.logger.Info("listener cycle done",
		"provider", s.provider,
		"fetched", res.Fetched,
		"stored", res.Stored,
		"processed", res.Processed,
		"items", res.Items,
		"exported", res.Exported,
	)
	return res, nil
}

// exportProcessed writes one workbook per processed email of the provider
// and marks it exported. Emails held for review are exported too.
func (s *Service) exportProcessed() (int, error) {
	exported := 0
	for _, status := range []string{pipeline.StatusProcessed, pipeline.StatusNeedsReview} {
		emails, err := s.db.ListEmailsByStatus(status, exportBatch)
		if err != nil {
			return exported, err
		}
		for _, email := range emails {
			if email.Provider != s.provider {
				continue
			}
			items, err := s.db.ListItems(email.ID)
			if err != nil {
				return exported, err
			}
			if len(items) == 0 {
				continue
			}
			outputPath := filepath.Join(s.cfg.OutputDir, "listener", ExportFilename(email.ID, email.MessageID))
			if err := pipeline.ExportItemsToXLSX(items, outputPath); err != nil {
				return exported, err
			}
			if err := s.db.UpdateEmailStatus(email.ID, StatusExported); err != nil {
				return exported, err
			}
			exported++
		}
	}
	return exported, nil
}

func ExportFilename(emailID int, messageID string) string {
	return fmt.Sprintf("%d_%s.xlsx", emailID, sanitizeMessageID(messageID))
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "@", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
