package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
	"rfqingest/internal/parselog"
	"rfqingest/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmailLifecycle(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertEmail("imap", "<m1@example.com>", "RFQ 12", "buyer@example.com", "2026-01-02T10:00:00Z", "h1", "/tmp/m1.eml", "fetched")
	require.NoError(t, err)
	require.Equal(t, "fetched", row.Status)

	again, err := db.UpsertEmail("imap", "<m1@example.com>", "RFQ 12 (fwd)", "buyer@example.com", "2026-01-02T10:00:00Z", "h2", "/tmp/m1.eml", "fetched")
	require.NoError(t, err)
	require.Equal(t, row.ID, again.ID)
	require.Equal(t, "RFQ 12 (fwd)", again.Subject)

	pending, err := db.ListEmailsByStatus("fetched", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, db.UpdateEmailStatus(row.ID, "processed"))
	got, err := db.GetEmailByID(row.ID)
	require.NoError(t, err)
	require.Equal(t, "processed", got.Status)

	_, err = db.MustEmailByProviderMessageID("imap", "<missing@example.com>")
	require.Error(t, err)
}

func TestReplaceItemsKeepsOrder(t *testing.T) {
	db := openTestDB(t)
	row, err := db.UpsertEmail("gmail", "g1", "", "", "", "h", "/tmp/g1.eml", "fetched")
	require.NoError(t, err)

	first := []internal.PriceRequestItem{{Description: "stale", Quantity: 1, Unit: "pcs"}}
	require.NoError(t, db.ReplaceItems(row.ID, "req-1", first))

	items := []internal.PriceRequestItem{
		{Description: "Ball bearing 6204", Quantity: 10, Unit: "pcs", Brand: util.StringPtr("SKF"), Confidence: 0.8},
		{Description: "Hydraulic hose 1/2 inch", Quantity: 5, Unit: "m", InternalCode: util.StringPtr("HH-12"), Confidence: 0.7},
	}
	require.NoError(t, db.ReplaceItems(row.ID, "req-2", items))

	got, err := db.ListItems(row.ID)
	require.NoError(t, err)
	require.Equal(t, items, got)
}

func TestParseLogRoundTrip(t *testing.T) {
	db := openTestDB(t)

	log := parselog.New("req-42").
		AddSource("body").
		SetItemCount(3).
		SetReference("RFQ-2024-001").
		SetNeedsVerification(true).
		Build()
	require.NoError(t, db.SaveParseLog(0, log))

	got, err := db.GetParseLog("req-42")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "RFQ-2024-001", got.ReferenceNumber)
	require.Equal(t, 3, got.ItemCount)
	require.True(t, got.NeedsVerification)
	require.Equal(t, []string{"body"}, got.Sources)

	missing, err := db.GetParseLog("nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	v, err := db.GetMetadata("imap:last_uid")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, db.SetMetadata("imap:last_uid", "41"))
	require.NoError(t, db.SetMetadata("imap:last_uid", "42"))
	v, err = db.GetMetadata("imap:last_uid")
	require.NoError(t, err)
	require.Equal(t, "42", *v)
}
