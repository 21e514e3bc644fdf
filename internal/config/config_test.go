package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/var/lib/rfq/app.db")
	t.Setenv("HEADER_MIN_SCORE", "9.5")
	t.Setenv("OCR_TIMEOUT", "45")
	t.Setenv("MAIL_LISTENER_INTERVAL", "2m")
	t.Setenv("OCR_ENABLED", "off")
	t.Setenv("MIN_ITEMS_BEFORE_FALLBACK", "not-a-number")
	t.Setenv("CONTINUATION_MERGE_NUMBERED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/rfq/app.db", cfg.DBPath)
	require.Equal(t, 9.5, cfg.HeaderMinScore)
	require.Equal(t, 45*time.Second, cfg.OCRTimeout)
	require.Equal(t, 2*time.Minute, cfg.MailListenerInterval)
	require.False(t, cfg.OCREnabled)
	require.Equal(t, Defaults().MinItemsBeforeFallback, cfg.MinItemsBeforeFallback)
	require.True(t, cfg.MergeNumberedItems)
	require.False(t, Defaults().MergeNumberedItems)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("FUZZY_THRESHOLD", "1.5")
	_, err := Load()
	require.Error(t, err)
}

func TestComponentConfigs(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, 64, cfg.ImageFilter().IconMaxSide)
	require.Equal(t, 30*time.Second, cfg.OCR().Timeout)
	require.Error(t, cfg.Require("IMAP_HOST", cfg.IMAPHost))
	require.NoError(t, cfg.Require("OCR_LANG", cfg.OCRLang))
}
