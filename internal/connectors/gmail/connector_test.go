package gmail

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal/config"
)

const rawMessage = "From: =?UTF-8?Q?Ren=C3=A9?= <rene@example.com>\r\n" +
	"Subject: Demande de prix DP2024/55\r\n" +
	"Message-ID: <dp55@example.com>\r\n" +
	"Date: Sun, 08 Feb 2026 10:00:00 +0100\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"2 pcs pompe\r\n"

func TestToFetched(t *testing.T) {
	got := toFetched("18d1", 0, []byte(rawMessage))
	require.Equal(t, Provider, got.Provider)
	require.Equal(t, "<dp55@example.com>", got.MessageID)
	require.Equal(t, "Demande de prix DP2024/55", got.Subject)
	require.Contains(t, got.From, "René")
	require.Equal(t, "2026-02-08T09:00:00Z", got.ReceivedAt)

	got = toFetched("18d2", 1770541200000, []byte("not a message"))
	require.Equal(t, "18d2", got.MessageID)
	require.Equal(t, "2026-02-08T09:00:00Z", got.ReceivedAt)
}

func TestDecodeBase64URL(t *testing.T) {
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		out, err := decodeBase64URL(enc.EncodeToString([]byte(rawMessage)))
		require.NoError(t, err)
		require.Equal(t, rawMessage, string(out))
	}
	_, err := decodeBase64URL("***")
	require.Error(t, err)
}

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(context.Background(), config.Defaults())
	require.ErrorContains(t, err, "GMAIL_CLIENT_ID")
}
