package connectors

import (
	"context"

	"rfqingest/internal"
)

// MailConnector pulls raw messages from a mailbox. Implementations return
// at most max messages from label, oldest first.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
