package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"rfqingest/internal"
	"rfqingest/internal/config"
)

const Provider = "gmail"

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Connector{service: svc}, nil
}

func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	if max <= 0 {
		return nil, nil
	}
	listResp, err := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	// The list is newest first.
	for i := len(listResp.Messages) - 1; i >= 0; i-- {
		ref := listResp.Messages[i]
		if ref.Id == "" {
			continue
		}
		rawResp, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		if rawResp.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, toFetched(ref.Id, rawResp.InternalDate, raw))
	}
	return out, nil
}

// toFetched reads the envelope from the raw headers, which saves a second
// metadata call per message.
func toFetched(id string, internalDate int64, raw []byte) internal.FetchedMailMessage {
	msg := internal.FetchedMailMessage{Provider: Provider, MessageID: id, Raw: raw}

	received := time.Now().UTC()
	if internalDate > 0 {
		received = time.UnixMilli(internalDate).UTC()
	}
	if env, err := enmime.ReadEnvelope(bytes.NewReader(raw)); err == nil {
		if v := strings.TrimSpace(env.GetHeader("Message-ID")); v != "" {
			msg.MessageID = v
		}
		msg.Subject = env.GetHeader("Subject")
		msg.From = env.GetHeader("From")
		if internalDate <= 0 {
			if t, err := env.Date(); err == nil {
				received = t.UTC()
			}
		}
	}
	msg.ReceivedAt = received.Format(time.RFC3339)
	return msg
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
