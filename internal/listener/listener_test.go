package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
	"rfqingest/internal/config"
	"rfqingest/internal/pipeline"
	"rfqingest/internal/storage"
)

const valvesRFQ = "From: Buyer <buyer@example.com>\r\n" +
	"Subject: RFQ valves\r\n" +
	"Message-ID: <valves@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"3 pcs ball valve DN25\r\n" +
	"5 pcs gate valve DN50\r\n"

type inbox struct {
	messages []internal.FetchedMailMessage
}

func (b *inbox) FetchInbox(context.Context, string, int) ([]internal.FetchedMailMessage, error) {
	out := b.messages
	b.messages = nil
	return out, nil
}

func TestRunCycle(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Defaults()
	cfg.OCREnabled = false
	cfg.RawMailDir = filepath.Join(tmp, "raw")
	cfg.OutputDir = filepath.Join(tmp, "out")

	ingestor, _, err := pipeline.NewIngestorFromConfig(cfg, nil)
	require.NoError(t, err)
	conn := &inbox{messages: []internal.FetchedMailMessage{{
		Provider:   "imap",
		MessageID:  "<valves@example.com>",
		Subject:    "RFQ valves",
		From:       "buyer@example.com",
		ReceivedAt: "2026-02-08T10:00:00Z",
		Raw:        []byte(valvesRFQ),
	}}}
	svc := NewService(db, cfg, conn, pipeline.NewProcessingService(db, ingestor, nil), nil)

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, CycleResult{Fetched: 1, Stored: 1, Processed: 1, Items: 2, Exported: 1}, res)

	row, err := db.GetEmailByProviderMessageID("imap", "<valves@example.com>")
	require.NoError(t, err)
	require.Equal(t, StatusExported, row.Status)
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "listener", ExportFilename(row.ID, row.MessageID)))
	require.NoError(t, err)

	last, err := db.GetMetadata(lastCycleKey)
	require.NoError(t, err)
	require.NotNil(t, last)

	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, CycleResult{}, res)
}

func TestExportFilename(t *testing.T) {
	require.Equal(t, "7__a_b.example.com_.xlsx", ExportFilename(7, "<a@b.example.com>"))
}

func TestNewConnectorRejectsUnknownProvider(t *testing.T) {
	_, err := NewConnector(context.Background(), config.Defaults(), "pop3")
	require.ErrorContains(t, err, "unsupported provider")
}
