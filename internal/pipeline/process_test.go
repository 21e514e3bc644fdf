package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rfqingest/internal"
	"rfqingest/internal/config"
	"rfqingest/internal/storage"
)

const sampleRFQ = "From: Buyer <buyer@example.com>\r\n" +
	"To: sales@example.com\r\n" +
	"Subject: RFQ-2024-118 bearings\r\n" +
	"Message-ID: <fixture-1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please quote the items below.\r\n" +
	"10 pcs bearing 6204\r\n" +
	"--b1\r\n" +
	"Content-Type: text/csv; name=\"items.csv\"\r\n" +
	"Content-Disposition: attachment; filename=\"items.csv\"\r\n" +
	"\r\n" +
	"Description;Qty\r\nBearing 6205;10\r\nOil seal 35x52x7;4\r\n" +
	"--b1--\r\n"

func TestSmokeEmailToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	require.NoError(t, err)
	defer db.Close()

	rawPath := filepath.Join(tmp, "fixture.eml")
	require.NoError(t, os.WriteFile(rawPath, []byte(sampleRFQ), 0o644))
	email, err := db.UpsertEmail("imap", "<fixture-1@example.com>", "RFQ-2024-118 bearings", "buyer@example.com", "2026-02-08T00:00:00Z", "hash", rawPath, StatusFetched)
	require.NoError(t, err)
	_, err = db.UpsertEmail("imap", "<missing@example.com>", "lost", "buyer@example.com", "2026-02-09T00:00:00Z", "hash2", filepath.Join(tmp, "missing.eml"), StatusFetched)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.OCREnabled = false
	ingestor, _, err := NewIngestorFromConfig(cfg, nil)
	require.NoError(t, err)
	proc := NewProcessingService(db, ingestor, nil)

	emails, items, err := proc.ProcessPending(context.Background(), 10, "")
	require.NoError(t, err)
	require.Equal(t, 1, emails)
	require.Equal(t, 3, items)

	row, err := db.GetEmailByID(email.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessed, row.Status)
	lost, err := db.GetEmailByProviderMessageID("imap", "<missing@example.com>")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, lost.Status)

	stored, err := db.ListItems(email.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.Equal(t, "bearing 6204", stored[0].Description)
	require.Equal(t, "items.csv", stored[1].Source)

	log, err := db.LatestParseLog(email.ID)
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Equal(t, "RFQ-2024-118", log.ReferenceNumber)
	require.Equal(t, 3, log.ItemCount)
	require.Equal(t, []string{"body", "items.csv"}, log.Sources)

	out := filepath.Join(tmp, "out", "result.xlsx")
	require.NoError(t, ExportItemsToXLSX(stored, out))
	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)
	header, err := f.GetCellValue(sheet, "B1")
	require.NoError(t, err)
	require.Equal(t, "description", header)
	desc, err := f.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	require.Equal(t, "Bearing 6205", desc)
	source, err := f.GetCellValue(sheet, "S4")
	require.NoError(t, err)
	require.Equal(t, "items.csv", source)
}

func TestProcessByProviderMessageIDUnknown(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()
	proc := NewProcessingService(db, nil, nil)
	_, err = proc.ProcessByProviderMessageID(context.Background(), "imap", "<nope@example.com>")
	require.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	item := []internal.PriceRequestItem{{Description: "Oil seal", Quantity: 1, Unit: "pcs"}}
	require.Equal(t, StatusSkipped, statusFor(Result{Classification: Classification{Label: LabelOffer}}))
	require.Equal(t, StatusNeedsReview, statusFor(Result{Classification: Classification{Label: LabelUnknown}, NeedsVerification: true}))
	require.Equal(t, StatusProcessed, statusFor(Result{Items: item, Classification: Classification{Label: LabelOffer}}))
	require.Equal(t, StatusNeedsReview, statusFor(Result{Items: item, NeedsVerification: true}))
}

func TestParserOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.HeaderMinScore = 10
	cfg.MinItemsBeforeFallback = 5
	cfg.MergeNumberedItems = true
	opts := ParserOptions(cfg)
	require.Equal(t, 10.0, opts.HeaderMinScore)
	require.Equal(t, 5, opts.MinItems)
	require.True(t, opts.MergeNumberedItems)
	require.Equal(t, DefaultOptions().HeaderStrongScore, opts.HeaderStrongScore)
}
