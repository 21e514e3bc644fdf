package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"rfqingest/internal"
	"rfqingest/internal/storage"
)

// StatusFetched marks a stored email that still waits for processing.
const StatusFetched = "fetched"

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store writes the raw message under its content hash and records it. The
// boolean reports whether the row is new; a message already known for the
// provider keeps its row and status.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (internal.EmailRow, bool, error) {
	if len(msg.Raw) == 0 {
		return internal.EmailRow{}, false, fmt.Errorf("empty raw message %s", msg.MessageID)
	}
	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.EmailRow{}, false, fmt.Errorf("create raw mail dir: %w", err)
	}

	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.EmailRow{}, false, fmt.Errorf("write raw message: %w", err)
		}
	}

	existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
	if err != nil {
		return internal.EmailRow{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}
	row, err := s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, StatusFetched)
	if err != nil {
		return internal.EmailRow{}, false, err
	}
	return row, true, nil
}
