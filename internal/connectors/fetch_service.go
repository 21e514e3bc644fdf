package connectors

import (
	"context"
	"fmt"
	"log/slog"

	"rfqingest/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		logger:    logger,
	}
}

// FetchAndStore pulls up to max messages and stores the new ones. A message
// that cannot be stored is logged and skipped.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", label, err)
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		_, created, err := s.store.Store(msg)
		if err != nil {
			s.logger.Warn("store message failed", "provider", msg.Provider, "message_id", msg.MessageID, "error", err)
			continue
		}
		if created {
			result.Stored++
		}
	}
	return result, nil
}
