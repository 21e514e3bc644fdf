package mailmsg

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rfqingest/internal"
)

const rawMessage = "From: Buyer <buyer@example.com>\r\n" +
	"To: sales@example.com\r\n" +
	"Subject: RFQ-2024-118 bearings\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/related; boundary=\"rel\"\r\n" +
	"\r\n" +
	"--rel\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Please quote the items below.</p><p>10 pcs bearing 6204</p>" +
	"<p>Best regards</p><p>Sent from my phone</p><img src=\"cid:logo01\"></body></html>\r\n" +
	"--rel\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-ID: <logo01>\r\n" +
	"Content-Disposition: inline\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"PNGDATA\r\n" +
	"--rel--\r\n" +
	"--outer\r\n" +
	"Content-Type: text/csv; name=\"items.csv\"\r\n" +
	"Content-Disposition: attachment; filename=\"items.csv\"\r\n" +
	"\r\n" +
	"Description;Qty\r\nBearing 6204;10\r\n" +
	"--outer--\r\n"

func TestParse(t *testing.T) {
	raw := strings.Replace(rawMessage, "PNGDATA", base64.StdEncoding.EncodeToString([]byte("\x89PNG fake image payload")), 1)
	email, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "abc123@example.com", email.MessageID)
	require.Equal(t, "RFQ-2024-118 bearings", email.Subject)
	require.Contains(t, email.HTML, "10 pcs bearing 6204")
	require.Len(t, email.Attachments, 2)

	var csv, logo internal.Attachment
	for _, a := range email.Attachments {
		switch a.ContentID {
		case "logo01":
			logo = a
		default:
			csv = a
		}
	}
	require.Equal(t, "items.csv", csv.Filename)
	require.False(t, csv.Inline)
	require.Contains(t, string(csv.Content), "Bearing 6204")

	require.True(t, logo.Inline)
	require.Equal(t, internal.PositionFooter, logo.Position)
	require.Contains(t, logo.Context, "Best regards")
	require.Equal(t, len(logo.Content), logo.Size)
}

func TestLocate(t *testing.T) {
	html := `<img src="cid:top">` + strings.Repeat("<p>body text</p>", 20)
	pos, _ := locate(html, "top")
	require.Equal(t, internal.PositionHeader, pos)
	pos, _ = locate(html, "missing")
	require.Equal(t, internal.PositionUnknown, pos)
}

func TestIsMessage(t *testing.T) {
	require.True(t, IsMessage("fwd.eml", ""))
	require.True(t, IsMessage("noname", "message/rfc822"))
	require.False(t, IsMessage("a.pdf", "application/pdf"))
}
