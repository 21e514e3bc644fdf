package connectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
	"rfqingest/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	label    string
}

func (s *stubConnector) FetchInbox(_ context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	s.label = label
	if s.err != nil {
		return nil, s.err
	}
	if len(s.messages) > max {
		return s.messages[:max], nil
	}
	return s.messages, nil
}

func message(id, body string) internal.FetchedMailMessage {
	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  id,
		Subject:    "RFQ " + id,
		From:       "buyer@example.com",
		ReceivedAt: "2026-02-08T10:00:00Z",
		Raw:        []byte("Subject: RFQ\r\n\r\n" + body),
	}
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFetchAndStore(t *testing.T) {
	db := openDB(t)
	rawDir := filepath.Join(t.TempDir(), "raw")
	conn := &stubConnector{messages: []internal.FetchedMailMessage{
		message("<a@example.com>", "10 pcs bearing"),
		message("<b@example.com>", "4 pcs oil seal"),
		{Provider: "imap", MessageID: "<empty@example.com>"},
	}}
	svc := NewFetchService(db, rawDir, conn, nil)

	res, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	require.Equal(t, "INBOX", conn.label)
	require.Equal(t, FetchResult{Fetched: 3, Stored: 2}, res)

	row, err := db.GetEmailByProviderMessageID("imap", "<a@example.com>")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, StatusFetched, row.Status)
	require.Equal(t, filepath.Join(rawDir, row.Hash+".eml"), row.RawRef)
	raw, err := os.ReadFile(row.RawRef)
	require.NoError(t, err)
	require.Contains(t, string(raw), "10 pcs bearing")

	res, err = svc.FetchAndStore(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	require.Equal(t, 0, res.Stored)
}

func TestStoreKeepsStatusOfKnownMessage(t *testing.T) {
	db := openDB(t)
	store := NewMailStoreService(db, t.TempDir())

	row, created, err := store.Store(message("<a@example.com>", "body"))
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, db.UpdateEmailStatus(row.ID, "processed"))

	again, created, err := store.Store(message("<a@example.com>", "body"))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, row.ID, again.ID)
	require.Equal(t, "processed", again.Status)
}

func TestFetchErrorIsReturned(t *testing.T) {
	svc := NewFetchService(openDB(t), t.TempDir(), &stubConnector{err: errors.New("auth failed")}, nil)
	_, err := svc.FetchAndStore(context.Background(), "INBOX", 5)
	require.ErrorContains(t, err, "auth failed")
}
