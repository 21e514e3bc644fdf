package mailmsg

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"

	"rfqingest/internal"
	"rfqingest/internal/util"
)

const contextChars = 200

var stripTags = bluemonday.StrictPolicy()

// Parse decodes a raw RFC 822 message. Inline parts and attachments both
// end up in Attachments; inline images get their position in the HTML
// body and the text around their reference.
func Parse(raw []byte) (internal.Email, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.Email{}, fmt.Errorf("read envelope: %w", err)
	}

	email := internal.Email{
		MessageID: strings.Trim(env.GetHeader("Message-Id"), "<> "),
		Subject:   env.GetHeader("Subject"),
		From:      env.GetHeader("From"),
		Text:      env.Text,
		HTML:      env.HTML,
	}

	add := func(p *enmime.Part, inline bool) {
		if p == nil || len(p.Content) == 0 {
			return
		}
		a := internal.Attachment{
			Filename:    strings.TrimSpace(p.FileName),
			ContentType: p.ContentType,
			ContentID:   strings.Trim(p.ContentID, "<> "),
			Content:     p.Content,
			Size:        len(p.Content),
			Inline:      inline,
		}
		if a.Filename == "" {
			a.Filename = fallbackName(p.ContentType, len(email.Attachments))
		}
		if a.ContentID != "" {
			a.Position, a.Context = locate(env.HTML, a.ContentID)
			if a.Position != internal.PositionUnknown {
				a.Inline = true
			}
		}
		email.Attachments = append(email.Attachments, a)
	}
	for _, p := range env.Attachments {
		add(p, false)
	}
	for _, p := range env.Inlines {
		add(p, true)
	}
	for _, p := range env.OtherParts {
		add(p, p.ContentID != "")
	}
	return email, nil
}

// locate finds the cid reference in the HTML body. The first fifth of the
// body counts as header, the last third as footer.
func locate(html, cid string) (internal.ImagePosition, string) {
	if html == "" {
		return internal.PositionUnknown, ""
	}
	idx := strings.Index(html, "cid:"+cid)
	if idx < 0 {
		return internal.PositionUnknown, ""
	}
	rel := float64(idx) / float64(len(html))
	pos := internal.PositionBody
	switch {
	case rel < 0.2:
		pos = internal.PositionHeader
	case rel > 0.67:
		pos = internal.PositionFooter
	}

	from, to := max(0, idx-contextChars*4), min(len(html), idx+contextChars*4)
	text := util.CollapseSpaces(stripTags.Sanitize(strings.ReplaceAll(html[from:to], ">", "> ")))
	if r := []rune(text); len(r) > 2*contextChars {
		text = string(r[len(r)/2-contextChars : len(r)/2+contextChars])
	}
	return pos, text
}

func fallbackName(contentType string, n int) string {
	ext := ".bin"
	switch {
	case strings.HasPrefix(contentType, "image/"):
		ext = "." + strings.TrimPrefix(strings.SplitN(contentType, ";", 2)[0], "image/")
	case strings.Contains(contentType, "pdf"):
		ext = ".pdf"
	case strings.Contains(contentType, "rfc822"):
		ext = ".eml"
	}
	return fmt.Sprintf("part%d%s", n+1, ext)
}

// IsMessage reports whether an attachment is itself an email.
func IsMessage(filename, contentType string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".eml") ||
		strings.HasPrefix(strings.ToLower(contentType), "message/rfc822")
}
