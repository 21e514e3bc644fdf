package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/require"

	"rfqingest/internal/config"
)

func TestNewConnectorRequiresCredentials(t *testing.T) {
	cfg := config.Defaults()
	cfg.IMAPHost = "imap.example.com"
	_, err := NewConnector(cfg)
	require.ErrorContains(t, err, "IMAP_USER")

	cfg.IMAPUser = "sales"
	cfg.IMAPPassword = "secret"
	c, err := NewConnector(cfg)
	require.NoError(t, err)
	require.Equal(t, 993, c.port)
	require.True(t, c.secure)
}

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		SeqNum:       3,
		Uid:          42,
		InternalDate: time.Date(2026, 2, 8, 9, 30, 0, 0, time.FixedZone("CET", 3600)),
		Envelope: &imap.Envelope{
			Subject: "RFQ 9912",
			From: []*imap.Address{
				{PersonalName: "Buyer", MailboxName: "buyer", HostName: "example.com"},
				{MailboxName: "purchasing", HostName: "example.com"},
			},
		},
	}
	got := toFetched(msg, []byte("raw"))
	require.Equal(t, Provider, got.Provider)
	require.Equal(t, "imap-42", got.MessageID)
	require.Equal(t, "RFQ 9912", got.Subject)
	require.Equal(t, "Buyer <buyer@example.com>, purchasing@example.com", got.From)
	require.Equal(t, "2026-02-08T08:30:00Z", got.ReceivedAt)
}
